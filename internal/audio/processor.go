// Package audio implements the audio channel subsystem: a lifecycle state
// machine that opens a demodulated audio inspector on a remote analyzer,
// keeps its parameters in sync with local intent, and feeds the streamed
// samples into a local playback sink.
package audio

import (
	"math"

	"github.com/sigstream/sigstream/internal/analyzer"
	"github.com/sigstream/sigstream/internal/logging"
	"github.com/sigstream/sigstream/internal/orbit"
)

const (
	// InspectorBandwidth is the spectral width requested for the audio
	// channel, before clamping against the analyzer's Nyquist limit.
	InspectorBandwidth = 200000.0

	// DefaultSampleRate is the playback rate requested when the user has
	// not picked one.
	DefaultSampleRate = 48000

	// Epsilon thresholds for change detection on float parameters. Volume
	// is deliberately coarse; it is applied locally and cheap to batch.
	freqEpsilon   = 1e-8
	volumeEpsilon = 1e-1
)

// Notifier receives the processor's outward lifecycle notifications.
type Notifier interface {
	// AudioOpened fires exactly once per successful open cycle.
	AudioOpened()
	// AudioError carries a human-readable failure description.
	AudioError(msg string)
}

// NotifierFuncs adapts plain functions to the Notifier interface.
type NotifierFuncs struct {
	Opened func()
	Error  func(string)
}

func (n NotifierFuncs) AudioOpened() {
	if n.Opened != nil {
		n.Opened()
	}
}

func (n NotifierFuncs) AudioError(msg string) {
	if n.Error != nil {
		n.Error(msg)
	}
}

// Processor owns the audio channel lifecycle. Opening is a multi-step
// asynchronous handshake: submit the open request through the tracker, wait
// for the acknowledgment carrying the inspector's configuration, push the
// local parameter intent, then wait for the config acknowledgment that marks
// the channel fully open. Samples flow only after that point.
//
// All methods must be called from the same goroutine that dispatches
// analyzer events; the processor holds no locks.
type Processor struct {
	analyzer analyzer.Analyzer
	tracker  *analyzer.RequestTracker
	playback Playback
	notifier Notifier
	log      logging.Logger

	// Lifecycle flags. opening means an open request is in flight;
	// inspectorOpened means a valid handle exists; opened means the first
	// config acknowledgment arrived and samples are welcome.
	enabled         bool
	opening         bool
	opened          bool
	inspectorOpened bool
	settingRate     bool

	// User intent. Applied on the next open when the channel is closed,
	// pushed immediately when it is open.
	sampleRate   uint
	cutOff       float64
	volume       float32
	demod        Demod
	squelch      bool
	squelchLevel float64
	lo           float64

	correctionEnabled bool
	orbit             orbit.Orbit

	// Remote channel state, valid only between open and close.
	template *analyzer.Config
	handle   analyzer.Handle
	inspID   analyzer.InspectorID

	// OnBatch, when set, observes every forwarded sample batch. silent is
	// true for batches replaced with silence during a rate change.
	OnBatch func(batch []complex64, silent bool)
}

// NewProcessor builds a processor around a playback sink. A nil playback
// marks the sink as failed at construction; the channel then reports an
// error on the first open attempt and stays disabled.
func NewProcessor(pb Playback, notifier Notifier, log logging.Logger) *Processor {
	if log == nil {
		log = logging.Nop()
	}
	if notifier == nil {
		notifier = NotifierFuncs{}
	}
	p := &Processor{
		playback:   pb,
		notifier:   notifier,
		log:        log,
		sampleRate: DefaultSampleRate,
		cutOff:     InspectorBandwidth / 2,
		volume:     1,
		demod:      DemodFM,
	}
	t := analyzer.NewRequestTracker(log)
	t.OnOpened = p.onOpened
	t.OnCancelled = p.onCancelled
	t.OnError = p.onError
	p.tracker = t
	return p
}

// Tracker exposes the request tracker for event routing.
func (p *Processor) Tracker() *analyzer.RequestTracker { return p.tracker }

// Opened reports whether the channel is fully open.
func (p *Processor) Opened() bool { return p.opened }

// Opening reports whether an open request is in flight.
func (p *Processor) Opening() bool { return p.opening }

// RateChanging reports whether a sample-rate change awaits acknowledgment.
func (p *Processor) RateChanging() bool { return p.settingRate }

// SampleRate reports the rate the sink settled on.
func (p *Processor) SampleRate() uint { return p.sampleRate }

// SetAnalyzer rebinds the processor to another analyzer. The channel on the
// old analyzer is torn down first; if audio was enabled, it reopens against
// the new one. A nil analyzer detaches only.
func (p *Processor) SetAnalyzer(a analyzer.Analyzer) {
	if p.analyzer != nil {
		p.Close()
	}
	p.analyzer = a
	p.tracker.SetAnalyzer(a)
	if p.analyzer != nil && p.enabled {
		p.Open()
	}
}

// SetEnabled toggles the user's intent. Turning on opens the channel,
// turning off closes it; repeated calls in the same state are no-ops.
func (p *Processor) SetEnabled(enabled bool) {
	if p.enabled == enabled {
		return
	}
	p.enabled = enabled
	if enabled {
		if !p.opened && !p.opening {
			p.Open()
		}
	} else {
		if p.opened || p.opening {
			p.Close()
		}
	}
}

// Open starts the asynchronous open handshake. It returns true while a
// request is in flight, false when nothing was submitted. Without an
// attached analyzer the intent is recorded and the open happens on attach.
func (p *Processor) Open() bool {
	if p.opening {
		return true
	}
	if p.analyzer == nil {
		return false
	}
	opening := false
	if !p.opened {
		if p.playback != nil {
			maxFc := p.analyzer.SampleRate() / 2
			bw := InspectorBandwidth
			reqRate := p.sampleRate

			// Playing back faster than the channel is wide is pointless.
			if float64(reqRate) > bw {
				reqRate = uint(math.Floor(bw))
			}

			p.playback.SetVolume(p.volume)
			p.playback.SetSampleRate(reqRate)
			// The sink starts before the request so it is ready for the
			// earliest samples.
			p.playback.Start()
			p.sampleRate = p.playback.SampleRate()

			if bw > maxFc {
				bw = maxFc
			}

			ch := analyzer.Channel{
				Bandwidth: bw,
				FreqTrack: 0,
				FreqCtr:   p.lo,
				FLow:      -.5 * bw,
				FHigh:     +.5 * bw,
			}
			if ch.FreqCtr > maxFc || ch.FreqCtr < -maxFc {
				ch.FreqCtr = 0
			}

			opening = p.tracker.RequestOpen("audio", ch)
			if !opening {
				p.notifier.AudioError("internal error while submitting the audio channel request")
				p.playback.Stop()
			}
		} else {
			p.notifier.AudioError("cannot enable audio, playback support failed to start")
		}
		p.opening = opening
	}
	return opening
}

// Close tears the channel down. It cancels an in-flight open request, closes
// the remote inspector when one is open, and stops the sink. Close is
// idempotent and always leaves the processor in a clean closed state.
func (p *Processor) Close() {
	if p.opening || p.opened || p.inspectorOpened {
		if p.inspectorOpened && p.analyzer != nil {
			if err := p.analyzer.CloseInspector(p.handle); err != nil {
				p.log.Warn("close inspector failed", logging.F("err", err))
			}
		}
		if !p.opened {
			p.tracker.CancelAll()
		}
		if p.playback != nil {
			p.playback.Stop()
		}
	}
	p.opening = false
	p.opened = false
	p.inspectorOpened = false
	p.settingRate = false
}

// setParams pushes the full local intent to the remote inspector. This is
// the single path for propagating parameter changes while the channel is
// open. Calling it without an open inspector or a captured template is a
// programming error.
func (p *Processor) setParams() {
	if !p.inspectorOpened || p.analyzer == nil {
		panic("audio: setParams without an open inspector")
	}
	if p.template == nil {
		panic("audio: setParams without a configuration template")
	}

	cfg, err := p.template.Dup()
	if err != nil {
		panic("audio: template duplication: " + err.Error())
	}
	cfg.SetFloat("audio.cutoff", p.cutOff)
	cfg.SetFloat("audio.volume", 1) // volume is applied in the local sink
	cfg.SetInt("audio.sample-rate", uint64(p.sampleRate))
	cfg.SetInt("audio.demodulator", uint64(p.demod))
	cfg.SetBool("audio.squelch", p.squelch)
	cfg.SetFloat("audio.squelch-level", p.squelchLevel)

	if err := p.analyzer.SetInspectorConfig(p.handle, cfg); err != nil {
		p.log.Warn("inspector config push failed", logging.F("err", err))
	}
}

// SetSquelchEnabled toggles the squelch gate.
func (p *Processor) SetSquelchEnabled(enabled bool) {
	if p.squelch == enabled {
		return
	}
	p.squelch = enabled
	if p.inspectorOpened {
		p.setParams()
	}
}

// SetSquelchLevel updates the squelch threshold.
func (p *Processor) SetSquelchLevel(level float64) {
	if feq(p.squelchLevel, level, freqEpsilon) {
		return
	}
	p.squelchLevel = level
	if p.inspectorOpened {
		p.setParams()
	}
}

// SetVolume updates the playback volume. The value stays local to the sink;
// the remote inspector always runs at unit gain.
func (p *Processor) SetVolume(volume float32) {
	if feq(float64(p.volume), float64(volume), volumeEpsilon) {
		return
	}
	p.volume = volume
	if p.playback != nil {
		p.playback.SetVolume(volume)
	}
	if p.inspectorOpened {
		p.setParams()
	}
}

// SetCutOff updates the audio low-pass cutoff.
func (p *Processor) SetCutOff(cutOff float64) {
	if feq(p.cutOff, cutOff, freqEpsilon) {
		return
	}
	p.cutOff = cutOff
	if p.inspectorOpened {
		p.setParams()
	}
}

// SetDemod switches the demodulator kind.
func (p *Processor) SetDemod(demod Demod) {
	if p.demod == demod {
		return
	}
	p.demod = demod
	if p.inspectorOpened {
		p.setParams()
	}
}

// SetSampleRate changes the playback rate. The local sink is reconfigured
// immediately; while the remote acknowledgment is pending, inbound samples
// are muted so nothing plays at a stale rate.
func (p *Processor) SetSampleRate(rate uint) {
	if p.sampleRate == rate {
		return
	}
	p.sampleRate = rate
	if p.playback != nil {
		p.playback.SetSampleRate(rate)
	}
	if p.inspectorOpened {
		p.settingRate = true
		p.setParams()
	}
}

// SetDemodFreq retunes the channel center. While open this bypasses the full
// parameter push; a frequency-only update needs no acknowledgment.
func (p *Processor) SetDemodFreq(lo float64) {
	if feq(p.lo, lo, freqEpsilon) {
		return
	}
	p.lo = lo
	if p.inspectorOpened && p.analyzer != nil {
		if err := p.analyzer.SetInspectorFreq(p.handle, p.lo); err != nil {
			p.log.Warn("inspector frequency update failed", logging.F("err", err))
		}
	}
}

// SetAudioCorrection updates the Doppler correction elements.
func (p *Processor) SetAudioCorrection(orb orbit.Orbit) {
	p.orbit = orb
	if p.correctionEnabled && p.inspectorOpened && p.analyzer != nil {
		p.pushCorrection()
	}
}

// SetCorrectionEnabled toggles Doppler correction.
func (p *Processor) SetCorrectionEnabled(enabled bool) {
	if p.correctionEnabled == enabled {
		return
	}
	p.correctionEnabled = enabled
	if p.correctionEnabled && p.inspectorOpened && p.analyzer != nil {
		p.pushCorrection()
	}
}

func (p *Processor) pushCorrection() {
	if err := p.analyzer.SetInspectorDopplerCorrection(p.handle, p.orbit); err != nil {
		p.log.Warn("doppler correction push failed", logging.F("err", err))
	}
}

// StartRecording is not implemented.
func (p *Processor) StartRecording(string) {}

// StopRecording is not implemented.
func (p *Processor) StopRecording() {}

// onOpened completes the open request: capture the inspector's configuration
// as the parameter template, then push the local intent.
func (p *Processor) onOpened(req analyzer.Request, cfg *analyzer.Config) {
	p.opening = false

	if p.analyzer == nil {
		return
	}

	// Lazy template capture: the remote side owns the schema, so the first
	// configuration it reports becomes the base for every later push. Each
	// capture replaces the previous template wholesale.
	tpl, err := cfg.Dup()
	if err != nil {
		if err := p.analyzer.CloseInspector(req.Handle); err != nil {
			p.log.Warn("close inspector failed", logging.F("err", err))
		}
		p.notifier.AudioError("failed to duplicate the audio channel configuration")
		return
	}
	p.template = tpl

	p.handle = req.Handle
	p.inspID = req.InspectorID
	p.inspectorOpened = true

	p.setParams()

	if p.correctionEnabled {
		p.pushCorrection()
	}
}

func (p *Processor) onCancelled(analyzer.Request) {
	p.opening = false
	if p.playback != nil {
		p.playback.Stop()
	}
}

func (p *Processor) onError(_ analyzer.Request, msg string) {
	p.opening = false
	if p.playback != nil {
		p.playback.Stop()
	}
	p.notifier.AudioError("failed to open audio channel: " + msg)
}

// handleInspectorMessage processes config acknowledgments and protocol
// rejections addressed to this channel's inspector.
func (p *Processor) handleInspectorMessage(ev analyzer.Event) {
	if !p.inspectorOpened || ev.InspectorID != p.inspID {
		return
	}

	switch ev.Kind {
	case analyzer.EventConfigAck:
		// First acknowledgment after open: the channel is fully up.
		if !p.opened {
			p.opened = true
			p.notifier.AudioOpened()
		}

		if p.settingRate {
			if v, ok := ev.Config.GetInt("audio.sample-rate"); ok {
				if uint64(p.sampleRate) == v {
					p.settingRate = false
				}
			} else {
				// The acknowledgment should always echo the rate; treat a
				// missing field as nothing left to wait for.
				p.settingRate = false
			}
		}

	case analyzer.EventWrongKind, analyzer.EventWrongObject, analyzer.EventWrongHandle:
		if !p.opened {
			p.Close()
			p.notifier.AudioError("unexpected error while opening the audio channel")
		}
		// After full open these are stale protocol noise and ignored.
	}
}

// handleSamples forwards a sample batch to the sink. While a rate change is
// pending the batch is replaced with equal-length silence, preserving timing
// without playing audio at the old rate.
func (p *Processor) handleSamples(ev analyzer.Event) {
	if !p.opened || ev.InspectorID != p.inspID {
		return
	}

	samples := ev.Samples
	silent := p.settingRate
	if silent {
		samples = make([]complex64, len(ev.Samples))
	}

	if p.playback != nil {
		p.playback.Write(samples)
	}
	if p.OnBatch != nil {
		p.OnBatch(samples, silent)
	}
}

func feq(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}
