package analyzer

import (
	"fmt"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/sigstream/sigstream/internal/logging"
	"github.com/sigstream/sigstream/internal/orbit"
	"github.com/sigstream/sigstream/internal/wire"
)

// DialOptions tune the remote connection.
type DialOptions struct {
	// Timeout applies to dialing, the hello handshake and every command
	// write. Zero means 5 seconds.
	Timeout time.Duration

	// MaxRetryTime bounds the exponential dial retry. Zero means 30 seconds.
	MaxRetryTime time.Duration

	// Dialer overrides the transport, e.g. to route through an SSH tunnel.
	Dialer func(network, address string) (net.Conn, error)

	Logger logging.Logger
}

// Remote is an Analyzer implementation speaking the sigstream wire protocol
// over a stream transport. Commands are submitted synchronously; completions
// and sample batches arrive on the Events channel, which closes when the
// connection dies.
type Remote struct {
	addr    string
	conn    net.Conn
	timeout time.Duration
	log     logging.Logger

	wmu sync.Mutex // serializes command frames

	rateBits atomic.Uint64 // analyzer sample rate, float64 bits
	events   chan Event

	closeOnce sync.Once
}

// Dial connects to an analyzer daemon and completes the hello handshake.
// Transient dial failures are retried with exponential backoff.
func Dial(addr string, opts DialOptions) (*Remote, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.MaxRetryTime == 0 {
		opts.MaxRetryTime = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	dialer := opts.Dialer
	if dialer == nil {
		d := net.Dialer{Timeout: opts.Timeout}
		dialer = d.Dial
	}

	var conn net.Conn
	dial := func() error {
		c, err := dialer("tcp", addr)
		if err != nil {
			opts.Logger.Warn("analyzer dial failed, retrying",
				logging.F("addr", addr), logging.F("err", err))
			return err
		}
		conn = c
		return nil
	}
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = opts.MaxRetryTime
	if err := backoff.Retry(dial, bo); err != nil {
		return nil, fmt.Errorf("analyzer: connect to %s: %w", addr, err)
	}

	r := &Remote{
		addr:    addr,
		conn:    conn,
		timeout: opts.Timeout,
		log:     opts.Logger,
		events:  make(chan Event, 64),
	}

	rate, err := r.readHello()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("analyzer: hello from %s: %w", addr, err)
	}
	r.rateBits.Store(math.Float64bits(rate))
	r.log.Info("analyzer connected",
		logging.F("addr", addr), logging.F("sample_rate", rate))

	go r.readLoop()
	return r, nil
}

// readHello waits for the initial hello event carrying the capture rate.
func (r *Remote) readHello() (float64, error) {
	if err := r.conn.SetReadDeadline(time.Now().Add(r.timeout)); err != nil {
		return 0, err
	}
	defer r.conn.SetReadDeadline(time.Time{})

	raw, err := wire.ReadFrame(r.conn)
	if err != nil {
		return 0, err
	}
	pkt, err := wire.Parse(raw)
	if err != nil {
		return 0, err
	}
	if pkt.Type != wire.PacketEvent || pkt.Opcode != wire.EvHello {
		return 0, fmt.Errorf("unexpected packet %d/%d before hello", pkt.Type, pkt.Opcode)
	}
	f, ok := pkt.Lookup(wire.TagSampleRate)
	if !ok {
		return 0, fmt.Errorf("hello carries no sample rate")
	}
	return f.Float64(), nil
}

func (r *Remote) readLoop() {
	defer close(r.events)
	for {
		raw, err := wire.ReadFrame(r.conn)
		if err != nil {
			r.log.Info("analyzer stream closed",
				logging.F("addr", r.addr), logging.F("err", err))
			return
		}
		pkt, err := wire.Parse(raw)
		if err != nil {
			r.log.Warn("dropping malformed packet", logging.F("err", err))
			continue
		}
		if pkt.Type != wire.PacketEvent {
			continue
		}
		if pkt.Opcode == wire.EvHello {
			if f, ok := pkt.Lookup(wire.TagSampleRate); ok {
				r.rateBits.Store(math.Float64bits(f.Float64()))
			}
			continue
		}
		ev, err := parseEvent(pkt)
		if err != nil {
			r.log.Warn("dropping undecodable event", logging.F("err", err))
			continue
		}
		r.events <- ev
	}
}

// parseEvent maps a decoded packet onto an Event.
func parseEvent(pkt *wire.Packet) (Event, error) {
	var ev Event
	switch pkt.Opcode {
	case wire.EvInspectorOpened:
		ev.Kind = EventInspectorOpened
	case wire.EvConfigAck:
		ev.Kind = EventConfigAck
	case wire.EvWrongKind:
		ev.Kind = EventWrongKind
	case wire.EvWrongObject:
		ev.Kind = EventWrongObject
	case wire.EvWrongHandle:
		ev.Kind = EventWrongHandle
	case wire.EvSamples:
		ev.Kind = EventSamples
	case wire.EvRequestError:
		ev.Kind = EventRequestError
	default:
		return ev, fmt.Errorf("unknown event opcode %d", pkt.Opcode)
	}

	if f, ok := pkt.Lookup(wire.TagRequestID); ok {
		ev.RequestID = f.Uint32()
	}
	if f, ok := pkt.Lookup(wire.TagHandle); ok {
		ev.Handle = Handle(f.Uint32())
	}
	if f, ok := pkt.Lookup(wire.TagInspectorID); ok {
		ev.InspectorID = InspectorID(f.Uint32())
	}
	if f, ok := pkt.Lookup(wire.TagMessage); ok {
		ev.Err = f.String()
	}
	if f, ok := pkt.Lookup(wire.TagConfig); ok {
		cfg, err := ParseConfig(f.Data)
		if err != nil {
			return ev, err
		}
		ev.Config = cfg
	}
	if f, ok := pkt.Lookup(wire.TagSamples); ok {
		samples, err := f.Complex64()
		if err != nil {
			return ev, err
		}
		ev.Samples = samples
	}
	return ev, nil
}

// Events returns the inbound event stream. The channel closes when the
// connection is lost or Close is called.
func (r *Remote) Events() <-chan Event { return r.events }

// SampleRate reports the analyzer capture rate learned from hello.
func (r *Remote) SampleRate() float64 {
	return math.Float64frombits(r.rateBits.Load())
}

// Close tears down the connection. Safe to call more than once.
func (r *Remote) Close() error {
	var err error
	r.closeOnce.Do(func() {
		err = r.conn.Close()
	})
	return err
}

func (r *Remote) send(pkt []byte) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if err := r.conn.SetWriteDeadline(time.Now().Add(r.timeout)); err != nil {
		return err
	}
	return wire.WriteFrame(r.conn, pkt)
}

func (r *Remote) OpenInspector(class string, ch Channel, requestID uint32) error {
	pkt := wire.NewPacket(wire.PacketCommand, wire.CmdOpenInspector)
	pkt = wire.AppendUint32(pkt, wire.TagRequestID, requestID)
	pkt = wire.AppendString(pkt, wire.TagClass, class)
	pkt = wire.AppendFloat64(pkt, wire.TagBandwidth, ch.Bandwidth)
	pkt = wire.AppendFloat64(pkt, wire.TagFrequency, ch.FreqCtr)
	pkt = wire.AppendFloat64(pkt, wire.TagTrackFreq, ch.FreqTrack)
	pkt = wire.AppendFloat64(pkt, wire.TagLowEdge, ch.FLow)
	pkt = wire.AppendFloat64(pkt, wire.TagHighEdge, ch.FHigh)
	return r.send(wire.Terminate(pkt))
}

func (r *Remote) CloseInspector(h Handle) error {
	pkt := wire.NewPacket(wire.PacketCommand, wire.CmdCloseInspector)
	pkt = wire.AppendUint32(pkt, wire.TagHandle, uint32(h))
	return r.send(wire.Terminate(pkt))
}

func (r *Remote) SetInspectorConfig(h Handle, cfg *Config) error {
	payload, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}
	pkt := wire.NewPacket(wire.PacketCommand, wire.CmdSetConfig)
	pkt = wire.AppendUint32(pkt, wire.TagHandle, uint32(h))
	pkt = wire.AppendBytes(pkt, wire.TagConfig, payload)
	return r.send(wire.Terminate(pkt))
}

func (r *Remote) SetInspectorFreq(h Handle, freq float64) error {
	pkt := wire.NewPacket(wire.PacketCommand, wire.CmdSetFreq)
	pkt = wire.AppendUint32(pkt, wire.TagHandle, uint32(h))
	pkt = wire.AppendFloat64(pkt, wire.TagFrequency, freq)
	return r.send(wire.Terminate(pkt))
}

// Orbit payload entry tags.
const (
	orbTagName       byte = 0x01
	orbTagSatID      byte = 0x02
	orbTagEpochYear  byte = 0x03
	orbTagEpochDay   byte = 0x04
	orbTagIncl       byte = 0x05
	orbTagRAAN       byte = 0x06
	orbTagEcc        byte = 0x07
	orbTagArgP       byte = 0x08
	orbTagMeanAnom   byte = 0x09
	orbTagMeanMotion byte = 0x0a
	orbTagBStar      byte = 0x0b
)

func (r *Remote) SetInspectorDopplerCorrection(h Handle, orb orbit.Orbit) error {
	payload := make([]byte, 0, 128)
	payload = wire.AppendString(payload, orbTagName, orb.Name)
	payload = wire.AppendUint32(payload, orbTagSatID, orb.SatelliteID)
	payload = wire.AppendUint64(payload, orbTagEpochYear, uint64(orb.EpochYear))
	payload = wire.AppendFloat64(payload, orbTagEpochDay, orb.EpochDay)
	payload = wire.AppendFloat64(payload, orbTagIncl, orb.Inclination)
	payload = wire.AppendFloat64(payload, orbTagRAAN, orb.RAAN)
	payload = wire.AppendFloat64(payload, orbTagEcc, orb.Eccentricity)
	payload = wire.AppendFloat64(payload, orbTagArgP, orb.ArgPerigee)
	payload = wire.AppendFloat64(payload, orbTagMeanAnom, orb.MeanAnomaly)
	payload = wire.AppendFloat64(payload, orbTagMeanMotion, orb.MeanMotion)
	payload = wire.AppendFloat64(payload, orbTagBStar, orb.BStar)
	payload = wire.Terminate(payload)

	pkt := wire.NewPacket(wire.PacketCommand, wire.CmdSetDoppler)
	pkt = wire.AppendUint32(pkt, wire.TagHandle, uint32(h))
	pkt = wire.AppendBytes(pkt, wire.TagOrbit, payload)
	return r.send(wire.Terminate(pkt))
}
