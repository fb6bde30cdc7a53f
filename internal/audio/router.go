package audio

import (
	"github.com/sigstream/sigstream/internal/analyzer"
)

// Router demultiplexes the analyzer event stream. Open-request completions
// go to the request tracker; configuration acknowledgments, protocol
// rejections and sample batches go to the processor, which filters them by
// inspector identity.
//
// Dispatch must run on the same goroutine as every other processor call.
type Router struct {
	proc *Processor
}

// NewRouter builds a router for the given processor.
func NewRouter(p *Processor) *Router {
	return &Router{proc: p}
}

// Dispatch routes one inbound event.
func (r *Router) Dispatch(ev analyzer.Event) {
	if r.proc.tracker.HandleEvent(ev) {
		return
	}
	switch ev.Kind {
	case analyzer.EventConfigAck,
		analyzer.EventWrongKind,
		analyzer.EventWrongObject,
		analyzer.EventWrongHandle:
		r.proc.handleInspectorMessage(ev)
	case analyzer.EventSamples:
		r.proc.handleSamples(ev)
	}
}

// Pump dispatches events until the channel closes.
func (r *Router) Pump(events <-chan analyzer.Event) {
	for ev := range events {
		r.Dispatch(ev)
	}
}
