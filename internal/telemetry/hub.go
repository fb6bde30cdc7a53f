// Package telemetry records audio channel lifecycle events and playback
// levels, keeps a bounded history, and fans live updates out to HTTP and
// websocket subscribers.
package telemetry

import (
	"sync"
	"time"
)

// Event kinds published by the hub.
const (
	KindOpened = "opened"
	KindClosed = "closed"
	KindError  = "error"
	KindLevel  = "level"
	KindState  = "state"
)

// Event is a single telemetry point.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Detail    string    `json:"detail,omitempty"`
	RMS       float64   `json:"rmsDbfs,omitempty"`
	Peak      float64   `json:"peakDbfs,omitempty"`
}

// Sink consumes telemetry events.
type Sink interface {
	Publish(Event)
}

// Hub collects history and fans out telemetry updates to subscribers. It
// satisfies the audio package's Notifier interface, so it can be handed to
// the processor directly.
type Hub struct {
	mu           sync.RWMutex
	history      []Event
	historyLimit int
	subscribers  map[chan Event]struct{}
	metrics      *Metrics
}

const defaultHistoryLimit = 500

// NewHub builds a hub with the given history limit. Metrics may be nil.
func NewHub(historyLimit int, metrics *Metrics) *Hub {
	if historyLimit <= 0 {
		historyLimit = defaultHistoryLimit
	}
	return &Hub{
		historyLimit: historyLimit,
		subscribers:  make(map[chan Event]struct{}),
		metrics:      metrics,
	}
}

// Publish records an event and forwards it to all live subscribers. Slow
// subscribers drop updates rather than block the publisher.
func (h *Hub) Publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	if h.metrics != nil {
		h.metrics.observe(ev)
	}

	h.mu.Lock()
	h.history = append(h.history, ev)
	if len(h.history) > h.historyLimit {
		h.history = h.history[len(h.history)-h.historyLimit:]
	}
	for ch := range h.subscribers {
		select {
		case ch <- ev:
		default:
		}
	}
	h.mu.Unlock()
}

// AudioOpened implements the processor notification for a completed open.
func (h *Hub) AudioOpened() {
	h.Publish(Event{Kind: KindOpened})
}

// AudioError implements the processor notification for a failed open.
func (h *Hub) AudioError(msg string) {
	h.Publish(Event{Kind: KindError, Detail: msg})
}

// ObserveLevel records a playback level measurement in dBFS.
func (h *Hub) ObserveLevel(rmsDB, peakDB float64) {
	h.Publish(Event{Kind: KindLevel, RMS: rmsDB, Peak: peakDB})
}

// State records a lifecycle state transition by name.
func (h *Hub) State(name string) {
	h.Publish(Event{Kind: KindState, Detail: name})
}

// History returns a copy of the stored events.
func (h *Hub) History() []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Event, len(h.history))
	copy(out, h.history)
	return out
}

// Subscribe registers a listener for live updates. The returned cancel
// function unregisters it and closes the channel.
func (h *Hub) Subscribe() (chan Event, func()) {
	ch := make(chan Event, 16)
	h.mu.Lock()
	h.subscribers[ch] = struct{}{}
	h.mu.Unlock()
	cancel := func() {
		h.mu.Lock()
		if _, ok := h.subscribers[ch]; ok {
			delete(h.subscribers, ch)
			close(ch)
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// MultiSink fans events out to multiple destinations.
type MultiSink []Sink

// Publish forwards the event to each configured sink.
func (m MultiSink) Publish(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Publish(ev)
		}
	}
}
