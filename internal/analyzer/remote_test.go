package analyzer

import (
	"net"
	"testing"
	"time"

	"github.com/sigstream/sigstream/internal/wire"
)

// dialPipe connects a Remote to an in-memory fake daemon. The server side of
// the pipe is returned for the test to script.
func dialPipe(t *testing.T, rate float64) (*Remote, net.Conn) {
	t.Helper()
	client, server := net.Pipe()

	go func() {
		hello := wire.NewPacket(wire.PacketEvent, wire.EvHello)
		hello = wire.AppendFloat64(hello, wire.TagSampleRate, rate)
		_ = wire.WriteFrame(server, wire.Terminate(hello))
	}()

	r, err := Dial("pipe", DialOptions{
		Timeout: time.Second,
		Dialer:  func(string, string) (net.Conn, error) { return client, nil },
	})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { r.Close(); server.Close() })
	return r, server
}

func readCommand(t *testing.T, server net.Conn) *wire.Packet {
	t.Helper()
	_ = server.SetReadDeadline(time.Now().Add(time.Second))
	raw, err := wire.ReadFrame(server)
	if err != nil {
		t.Fatalf("read command: %v", err)
	}
	pkt, err := wire.Parse(raw)
	if err != nil {
		t.Fatalf("parse command: %v", err)
	}
	return pkt
}

func waitEvent(t *testing.T, r *Remote) Event {
	t.Helper()
	select {
	case ev, ok := <-r.Events():
		if !ok {
			t.Fatal("event stream closed unexpectedly")
		}
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for an event")
	}
	panic("unreachable")
}

func TestDialLearnsSampleRate(t *testing.T) {
	r, _ := dialPipe(t, 2e6)
	if r.SampleRate() != 2e6 {
		t.Fatalf("sample rate %v, want 2e6", r.SampleRate())
	}
}

func TestOpenInspectorOnTheWire(t *testing.T) {
	r, server := dialPipe(t, 2e6)

	go func() {
		_ = r.OpenInspector("audio", Channel{
			Bandwidth: 200000,
			FreqCtr:   1000,
			FLow:      -100000,
			FHigh:     100000,
		}, 7)
	}()

	pkt := readCommand(t, server)
	if pkt.Type != wire.PacketCommand || pkt.Opcode != wire.CmdOpenInspector {
		t.Fatalf("unexpected packet %d/%d", pkt.Type, pkt.Opcode)
	}
	if f, _ := pkt.Lookup(wire.TagRequestID); f.Uint32() != 7 {
		t.Fatalf("request id %d, want 7", f.Uint32())
	}
	if f, _ := pkt.Lookup(wire.TagClass); f.String() != "audio" {
		t.Fatalf("class %q", f.String())
	}
	if f, _ := pkt.Lookup(wire.TagBandwidth); f.Float64() != 200000 {
		t.Fatalf("bandwidth %v", f.Float64())
	}
	if f, _ := pkt.Lookup(wire.TagLowEdge); f.Float64() != -100000 {
		t.Fatalf("low edge %v", f.Float64())
	}
}

func TestInspectorOpenedEventDecoding(t *testing.T) {
	r, server := dialPipe(t, 2e6)

	cfgPayload, err := DefaultTemplate().MarshalBinary()
	if err != nil {
		t.Fatalf("marshal template: %v", err)
	}
	ev := wire.NewPacket(wire.PacketEvent, wire.EvInspectorOpened)
	ev = wire.AppendUint32(ev, wire.TagRequestID, 7)
	ev = wire.AppendUint32(ev, wire.TagHandle, 3)
	ev = wire.AppendUint32(ev, wire.TagInspectorID, 9)
	ev = wire.AppendBytes(ev, wire.TagConfig, cfgPayload)
	go func() { _ = wire.WriteFrame(server, wire.Terminate(ev)) }()

	got := waitEvent(t, r)
	if got.Kind != EventInspectorOpened {
		t.Fatalf("kind %v", got.Kind)
	}
	if got.RequestID != 7 || got.Handle != Handle(3) || got.InspectorID != InspectorID(9) {
		t.Fatalf("addressing lost: %+v", got)
	}
	if got.Config == nil {
		t.Fatal("config not decoded")
	}
	if v, _ := got.Config.GetInt("audio.sample-rate"); v != 44100 {
		t.Fatalf("config content lost: %d", v)
	}
}

func TestSamplesEventDecoding(t *testing.T) {
	r, server := dialPipe(t, 2e6)

	in := []complex64{1 + 1i, -0.5}
	ev := wire.NewPacket(wire.PacketEvent, wire.EvSamples)
	ev = wire.AppendUint32(ev, wire.TagInspectorID, 9)
	ev = wire.AppendComplex64(ev, wire.TagSamples, in)
	go func() { _ = wire.WriteFrame(server, wire.Terminate(ev)) }()

	got := waitEvent(t, r)
	if got.Kind != EventSamples || len(got.Samples) != 2 {
		t.Fatalf("unexpected event: %+v", got)
	}
	if got.Samples[0] != in[0] || got.Samples[1] != in[1] {
		t.Fatalf("samples corrupted: %v", got.Samples)
	}
}

func TestMalformedPacketIsSkipped(t *testing.T) {
	r, server := dialPipe(t, 2e6)

	go func() {
		// Truncated packet, then a valid event.
		_ = wire.WriteFrame(server, []byte{wire.PacketEvent, wire.EvConfigAck, wire.TagHandle})
		ok := wire.NewPacket(wire.PacketEvent, wire.EvWrongHandle)
		ok = wire.AppendUint32(ok, wire.TagInspectorID, 9)
		_ = wire.WriteFrame(server, wire.Terminate(ok))
	}()

	got := waitEvent(t, r)
	if got.Kind != EventWrongHandle {
		t.Fatalf("expected the stream to survive a malformed packet, got %+v", got)
	}
}

func TestStreamDeathClosesEvents(t *testing.T) {
	r, server := dialPipe(t, 2e6)
	server.Close()

	select {
	case _, ok := <-r.Events():
		if ok {
			t.Fatal("expected a closed channel, got an event")
		}
	case <-time.After(time.Second):
		t.Fatal("event channel did not close")
	}
}
