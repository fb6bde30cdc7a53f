package audio

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Playback is the local audio sink the processor streams into. Rate changes
// are best effort: implementations may settle on a nearby rate, which the
// processor reads back through SampleRate.
type Playback interface {
	Start()
	Stop()
	SetSampleRate(rate uint)
	SampleRate() uint
	SetVolume(level float32)
	Write(samples []complex64)
}

// DevicePlayback plays demodulated samples on the default audio device. The
// device context runs at a fixed rate; incoming streams are linearly
// resampled to it, so SetSampleRate never has to reopen the device.
//
// The oto library permits a single context per process, so build at most one
// DevicePlayback.
type DevicePlayback struct {
	player     *oto.Player
	ring       *pcmRing
	deviceRate uint

	mu         sync.Mutex
	streamRate uint
	phase      float64
	last       float32
	started    bool
}

// NewDevicePlayback opens the audio device at deviceRate Hz with roughly
// bufferMs milliseconds of ring buffering.
func NewDevicePlayback(deviceRate uint, bufferMs int) (*DevicePlayback, error) {
	if deviceRate == 0 {
		deviceRate = DefaultSampleRate
	}
	if bufferMs <= 0 {
		bufferMs = 500
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(deviceRate),
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("audio: open playback device: %w", err)
	}
	<-ready

	ring := newPCMRing(int(deviceRate) * 2 * bufferMs / 1000)
	d := &DevicePlayback{
		player:     ctx.NewPlayer(ring),
		ring:       ring,
		deviceRate: deviceRate,
		streamRate: deviceRate,
	}
	return d, nil
}

func (d *DevicePlayback) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.started = true
	d.ring.Reset()
	d.player.Play()
}

func (d *DevicePlayback) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	d.started = false
	d.player.Pause()
	d.ring.Reset()
}

// SetSampleRate switches the incoming stream rate. The device keeps running
// at its fixed rate; only the resampling stride changes.
func (d *DevicePlayback) SetSampleRate(rate uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if rate == 0 {
		rate = d.deviceRate
	}
	d.streamRate = rate
	d.phase = 0
}

// SampleRate returns the achieved stream rate.
func (d *DevicePlayback) SampleRate() uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streamRate
}

func (d *DevicePlayback) SetVolume(level float32) {
	if level < 0 {
		level = 0
	}
	d.player.SetVolume(float64(level))
}

// Write resamples the real part of the batch to the device rate and queues
// it for playback. When the ring is full, the oldest audio is dropped.
func (d *DevicePlayback) Write(samples []complex64) {
	d.mu.Lock()
	streamRate := d.streamRate
	phase := d.phase
	last := d.last
	started := d.started
	d.mu.Unlock()

	if !started || len(samples) == 0 {
		return
	}

	step := float64(streamRate) / float64(d.deviceRate)
	out := make([]byte, 0, int(float64(len(samples))/step)*2+2)
	for phase < float64(len(samples)) {
		idx := int(phase)
		frac := float32(phase - float64(idx))
		prev := last
		if idx > 0 {
			prev = real(samples[idx-1])
		}
		cur := real(samples[idx])
		v := prev + (cur-prev)*frac
		out = binary.LittleEndian.AppendUint16(out, uint16(int16(clampPCM(v)*32767)))
		phase += step
	}

	d.mu.Lock()
	d.phase = phase - float64(len(samples))
	d.last = real(samples[len(samples)-1])
	d.mu.Unlock()

	d.ring.Write(out)
}

func clampPCM(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// pcmRing is a byte ring feeding the device player. Reads never block: an
// empty ring yields silence so the device does not underrun audibly. Writes
// never block either: a full ring drops its oldest audio.
type pcmRing struct {
	mu   sync.Mutex
	buf  []byte
	r, w int
	fill int
}

func newPCMRing(size int) *pcmRing {
	if size < 4096 {
		size = 4096
	}
	return &pcmRing{buf: make([]byte, size)}
}

func (p *pcmRing) Write(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range b {
		if p.fill == len(p.buf) {
			// Drop the oldest byte.
			p.r = (p.r + 1) % len(p.buf)
			p.fill--
		}
		p.buf[p.w] = c
		p.w = (p.w + 1) % len(p.buf)
		p.fill++
	}
}

// Read implements io.Reader for the device player. Missing audio is replaced
// with silence.
func (p *pcmRing) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for ; n < len(b) && p.fill > 0; n++ {
		b[n] = p.buf[p.r]
		p.r = (p.r + 1) % len(p.buf)
		p.fill--
	}
	for i := n; i < len(b); i++ {
		b[i] = 0
	}
	return len(b), nil
}

// Fill reports the buffered byte count.
func (p *pcmRing) Fill() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fill
}

func (p *pcmRing) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.r, p.w, p.fill = 0, 0, 0
}
