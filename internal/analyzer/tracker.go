package analyzer

import (
	"github.com/google/uuid"

	"github.com/sigstream/sigstream/internal/logging"
)

// Request describes one in-flight channel-open request.
type Request struct {
	ID          uint32
	Token       uuid.UUID
	Class       string
	Channel     Channel
	Handle      Handle
	InspectorID InspectorID

	cancelled bool
}

// RequestTracker correlates open requests with their asynchronous
// completions. At most one request may be outstanding at a time: completion
// order across concurrent requests is not guaranteed by the analyzer, and a
// single slot sidesteps the reordering hazard entirely.
//
// Not safe for concurrent use; drive it from the event-loop goroutine.
type RequestTracker struct {
	analyzer Analyzer
	nextID   uint32
	pending  *Request
	log      logging.Logger

	// Completion callbacks. A nil callback is skipped.
	OnOpened    func(Request, *Config)
	OnCancelled func(Request)
	OnError     func(Request, string)
}

// NewRequestTracker builds a tracker with no analyzer bound.
func NewRequestTracker(log logging.Logger) *RequestTracker {
	if log == nil {
		log = logging.Nop()
	}
	return &RequestTracker{log: log}
}

// SetAnalyzer rebinds the tracker. Any outstanding request against the old
// analyzer is cancelled first.
func (t *RequestTracker) SetAnalyzer(a Analyzer) {
	if t.pending != nil {
		t.CancelAll()
		t.pending = nil
	}
	t.analyzer = a
}

// Pending reports whether a request is outstanding and not yet cancelled.
func (t *RequestTracker) Pending() bool {
	return t.pending != nil && !t.pending.cancelled
}

// RequestOpen submits an open request for a channel of the given class.
// It returns true iff the request was accepted for submission.
func (t *RequestTracker) RequestOpen(class string, ch Channel) bool {
	if t.analyzer == nil {
		return false
	}
	if t.Pending() {
		// One outstanding request per tracker. The caller's opening guard
		// should have prevented this.
		t.log.Warn("open request refused, another is in flight",
			logging.F("class", class))
		return false
	}

	t.nextID++
	req := &Request{
		ID:      t.nextID,
		Token:   uuid.New(),
		Class:   class,
		Channel: ch,
	}
	if err := t.analyzer.OpenInspector(class, ch, req.ID); err != nil {
		t.log.Error("open request submission failed",
			logging.F("class", class), logging.F("err", err))
		return false
	}
	t.pending = req
	t.log.Debug("open request submitted",
		logging.F("class", class),
		logging.F("request", req.ID),
		logging.F("token", req.Token.String()))
	return true
}

// CancelAll marks every outstanding request as cancelled. The request record
// is retained so a late acknowledgment can be matched, its orphaned handle
// closed, and the completion dropped.
func (t *RequestTracker) CancelAll() {
	if t.pending == nil || t.pending.cancelled {
		return
	}
	t.pending.cancelled = true
	t.log.Debug("open request cancelled", logging.F("request", t.pending.ID))
}

// HandleEvent consumes tracker-addressed events. It returns true when the
// event belonged to an in-flight request and must not be routed further.
func (t *RequestTracker) HandleEvent(ev Event) bool {
	switch ev.Kind {
	case EventInspectorOpened:
		if t.pending == nil || t.pending.ID != ev.RequestID {
			return false
		}
		req := *t.pending
		t.pending = nil

		if req.cancelled {
			// Nobody wants this inspector anymore; close the orphan.
			if t.analyzer != nil {
				if err := t.analyzer.CloseInspector(ev.Handle); err != nil {
					t.log.Warn("failed to close orphaned inspector",
						logging.F("handle", ev.Handle), logging.F("err", err))
				}
			}
			if t.OnCancelled != nil {
				t.OnCancelled(req)
			}
			return true
		}

		req.Handle = ev.Handle
		req.InspectorID = ev.InspectorID
		if t.OnOpened != nil {
			t.OnOpened(req, ev.Config)
		}
		return true

	case EventRequestError:
		if t.pending == nil || t.pending.ID != ev.RequestID {
			return false
		}
		req := *t.pending
		t.pending = nil
		if req.cancelled {
			if t.OnCancelled != nil {
				t.OnCancelled(req)
			}
			return true
		}
		if t.OnError != nil {
			t.OnError(req, ev.Err)
		}
		return true
	}
	return false
}
