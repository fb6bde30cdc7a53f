package analyzer

import (
	"errors"

	"github.com/sigstream/sigstream/internal/orbit"
)

// OpenCall records one OpenInspector invocation on the mock.
type OpenCall struct {
	Class     string
	Channel   Channel
	RequestID uint32
}

// ConfigCall records one SetInspectorConfig invocation on the mock.
type ConfigCall struct {
	Handle Handle
	Config *Config
}

// FreqCall records one SetInspectorFreq invocation on the mock.
type FreqCall struct {
	Handle Handle
	Freq   float64
}

// DopplerCall records one SetInspectorDopplerCorrection invocation.
type DopplerCall struct {
	Handle Handle
	Orbit  orbit.Orbit
}

// Mock is a scriptable in-memory Analyzer for tests. Every operation is
// recorded; failures are injected through the Fail* fields.
type Mock struct {
	Rate float64

	FailOpen   bool
	FailConfig bool

	Opens    []OpenCall
	Closes   []Handle
	Configs  []ConfigCall
	Freqs    []FreqCall
	Dopplers []DopplerCall
}

// NewMock returns a mock analyzer with the given capture sample rate.
func NewMock(rate float64) *Mock {
	return &Mock{Rate: rate}
}

func (m *Mock) SampleRate() float64 { return m.Rate }

func (m *Mock) OpenInspector(class string, ch Channel, requestID uint32) error {
	if m.FailOpen {
		return errors.New("mock: open refused")
	}
	m.Opens = append(m.Opens, OpenCall{Class: class, Channel: ch, RequestID: requestID})
	return nil
}

func (m *Mock) CloseInspector(h Handle) error {
	m.Closes = append(m.Closes, h)
	return nil
}

func (m *Mock) SetInspectorConfig(h Handle, cfg *Config) error {
	if m.FailConfig {
		return errors.New("mock: config refused")
	}
	// Snapshot so later mutations by the caller do not alias the record.
	dup, err := cfg.Dup()
	if err != nil {
		return err
	}
	m.Configs = append(m.Configs, ConfigCall{Handle: h, Config: dup})
	return nil
}

func (m *Mock) SetInspectorFreq(h Handle, freq float64) error {
	m.Freqs = append(m.Freqs, FreqCall{Handle: h, Freq: freq})
	return nil
}

func (m *Mock) SetInspectorDopplerCorrection(h Handle, orb orbit.Orbit) error {
	m.Dopplers = append(m.Dopplers, DopplerCall{Handle: h, Orbit: orb})
	return nil
}

// LastOpen returns the most recent open call, if any.
func (m *Mock) LastOpen() (OpenCall, bool) {
	if len(m.Opens) == 0 {
		return OpenCall{}, false
	}
	return m.Opens[len(m.Opens)-1], true
}

// DefaultTemplate builds a configuration resembling what an audio inspector
// reports on open.
func DefaultTemplate() *Config {
	cfg := NewConfig()
	cfg.SetFloat("audio.cutoff", 15000)
	cfg.SetFloat("audio.volume", 1)
	cfg.SetInt("audio.sample-rate", 44100)
	cfg.SetInt("audio.demodulator", 0)
	cfg.SetBool("audio.squelch", false)
	cfg.SetFloat("audio.squelch-level", 0)
	return cfg
}
