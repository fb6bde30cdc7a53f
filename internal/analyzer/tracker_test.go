package analyzer

import (
	"testing"
)

func TestTrackerSingleOutstandingRequest(t *testing.T) {
	mock := NewMock(2e6)
	tr := NewRequestTracker(nil)
	tr.SetAnalyzer(mock)

	if !tr.RequestOpen("audio", Channel{Bandwidth: 1}) {
		t.Fatal("first request refused")
	}
	if tr.RequestOpen("audio", Channel{Bandwidth: 2}) {
		t.Fatal("second request should be refused while one is in flight")
	}
	if len(mock.Opens) != 1 {
		t.Fatalf("expected one submission, got %d", len(mock.Opens))
	}
}

func TestTrackerCompletionCarriesHandleAndConfig(t *testing.T) {
	mock := NewMock(2e6)
	tr := NewRequestTracker(nil)
	tr.SetAnalyzer(mock)

	var got Request
	var gotCfg *Config
	tr.OnOpened = func(req Request, cfg *Config) { got, gotCfg = req, cfg }

	tr.RequestOpen("audio", Channel{Bandwidth: 200000})
	open, _ := mock.LastOpen()

	handled := tr.HandleEvent(Event{
		Kind:        EventInspectorOpened,
		RequestID:   open.RequestID,
		Handle:      Handle(3),
		InspectorID: InspectorID(9),
		Config:      DefaultTemplate(),
	})
	if !handled {
		t.Fatal("completion not consumed")
	}
	if got.Handle != Handle(3) || got.InspectorID != InspectorID(9) {
		t.Fatalf("completion fields lost: %+v", got)
	}
	if gotCfg == nil {
		t.Fatal("config not forwarded")
	}
	if tr.Pending() {
		t.Fatal("request still pending after completion")
	}
}

func TestTrackerUnknownRequestNotConsumed(t *testing.T) {
	tr := NewRequestTracker(nil)
	if tr.HandleEvent(Event{Kind: EventInspectorOpened, RequestID: 99}) {
		t.Fatal("unknown completion must not be consumed")
	}
}

func TestTrackerCancelledCompletionClosesOrphan(t *testing.T) {
	mock := NewMock(2e6)
	tr := NewRequestTracker(nil)
	tr.SetAnalyzer(mock)

	opened := 0
	cancelled := 0
	tr.OnOpened = func(Request, *Config) { opened++ }
	tr.OnCancelled = func(Request) { cancelled++ }

	tr.RequestOpen("audio", Channel{})
	open, _ := mock.LastOpen()
	tr.CancelAll()

	if tr.Pending() {
		t.Fatal("cancelled request must not count as pending")
	}

	tr.HandleEvent(Event{
		Kind:      EventInspectorOpened,
		RequestID: open.RequestID,
		Handle:    Handle(5),
	})

	if opened != 0 || cancelled != 1 {
		t.Fatalf("expected only a cancellation, got opened=%d cancelled=%d", opened, cancelled)
	}
	if len(mock.Closes) != 1 || mock.Closes[0] != Handle(5) {
		t.Fatalf("orphan handle not closed: %v", mock.Closes)
	}
}

func TestTrackerErrorCompletion(t *testing.T) {
	mock := NewMock(2e6)
	tr := NewRequestTracker(nil)
	tr.SetAnalyzer(mock)

	var gotMsg string
	tr.OnError = func(_ Request, msg string) { gotMsg = msg }

	tr.RequestOpen("audio", Channel{})
	open, _ := mock.LastOpen()
	tr.HandleEvent(Event{Kind: EventRequestError, RequestID: open.RequestID, Err: "no slots"})

	if gotMsg != "no slots" {
		t.Fatalf("error text lost: %q", gotMsg)
	}
	if tr.Pending() {
		t.Fatal("request still pending after error")
	}
}

func TestTrackerRebindCancelsPending(t *testing.T) {
	mock := NewMock(2e6)
	tr := NewRequestTracker(nil)
	tr.SetAnalyzer(mock)
	tr.RequestOpen("audio", Channel{})

	tr.SetAnalyzer(NewMock(4e6))

	if tr.Pending() {
		t.Fatal("rebind must drop the outstanding request")
	}
	if !tr.RequestOpen("audio", Channel{}) {
		t.Fatal("new request refused after rebind")
	}
}

func TestTrackerRequestTokensAreUnique(t *testing.T) {
	mock := NewMock(2e6)
	tr := NewRequestTracker(nil)
	tr.SetAnalyzer(mock)

	var first Request
	tr.OnOpened = func(req Request, _ *Config) { first = req }
	tr.RequestOpen("audio", Channel{})
	open, _ := mock.LastOpen()
	tr.HandleEvent(Event{Kind: EventInspectorOpened, RequestID: open.RequestID})

	var second Request
	tr.OnOpened = func(req Request, _ *Config) { second = req }
	tr.RequestOpen("audio", Channel{})
	open, _ = mock.LastOpen()
	tr.HandleEvent(Event{Kind: EventInspectorOpened, RequestID: open.RequestID})

	if first.Token == second.Token {
		t.Fatal("request tokens must differ")
	}
	if first.ID == second.ID {
		t.Fatal("request ids must differ")
	}
}
