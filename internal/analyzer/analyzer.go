// Package analyzer defines the contract with the remote signal-analyzer
// daemon: the operations a client may invoke on it, the event stream it
// publishes back, and the request tracker that correlates asynchronous
// channel-open acknowledgments.
package analyzer

import (
	"github.com/sigstream/sigstream/internal/orbit"
)

// Handle identifies an open inspector on the analyzer side. It is opaque to
// the client and only meaningful while the inspector stays open.
type Handle uint32

// InspectorID tags inbound messages with the inspector they belong to.
type InspectorID uint32

// Channel describes the spectral window requested for a new inspector.
// Frequencies are offsets from the analyzer's center frequency, in Hz.
type Channel struct {
	Bandwidth float64
	FreqCtr   float64 // channel center (fc)
	FreqTrack float64 // tracking offset (ft)
	FLow      float64
	FHigh     float64
}

// Analyzer is the set of operations the audio subsystem needs from the
// remote daemon. Implementations must not block on any of these calls
// beyond request submission; completions arrive as Events.
type Analyzer interface {
	// SampleRate reports the analyzer's capture sample rate in Hz.
	SampleRate() float64

	// OpenInspector submits an asynchronous open request for a channel of
	// the given class. The requestID is echoed back in the matching
	// InspectorOpened or RequestError event.
	OpenInspector(class string, ch Channel, requestID uint32) error

	CloseInspector(h Handle) error
	SetInspectorConfig(h Handle, cfg *Config) error
	SetInspectorFreq(h Handle, freq float64) error
	SetInspectorDopplerCorrection(h Handle, orb orbit.Orbit) error
}
