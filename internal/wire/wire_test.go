package wire

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestIntegerZeroSuppression(t *testing.T) {
	cases := []struct {
		v    uint64
		size int // value bytes after the tag and length
	}{
		{0, 0},
		{1, 1},
		{0xff, 1},
		{0x100, 2},
		{0xdeadbeef, 4},
		{1 << 56, 8},
	}
	for _, tc := range cases {
		buf := AppendUint64(nil, TagHandle, tc.v)
		if got := len(buf) - 2; got != tc.size {
			t.Fatalf("value %#x encoded in %d bytes, want %d", tc.v, got, tc.size)
		}

		pkt, err := Parse(Terminate(append(NewPacket(PacketEvent, EvHello), buf...)))
		if err != nil {
			t.Fatalf("parse %#x: %v", tc.v, err)
		}
		f, ok := pkt.Lookup(TagHandle)
		if !ok {
			t.Fatalf("field lost for %#x", tc.v)
		}
		if f.Uint64() != tc.v {
			t.Fatalf("round trip %#x, got %#x", tc.v, f.Uint64())
		}
	}
}

func TestFloatRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 200000, 2e6, 0.5, -3.1415926535} {
		buf := NewPacket(PacketCommand, CmdSetFreq)
		buf = AppendFloat64(buf, TagFrequency, v)
		buf = AppendFloat32(buf, TagTrackFreq, float32(v))
		pkt, err := Parse(Terminate(buf))
		if err != nil {
			t.Fatalf("parse %v: %v", v, err)
		}
		f, _ := pkt.Lookup(TagFrequency)
		if f.Float64() != v {
			t.Fatalf("float64 %v decoded as %v", v, f.Float64())
		}
		g, _ := pkt.Lookup(TagTrackFreq)
		if g.Float32() != float32(v) {
			t.Fatalf("float32 %v decoded as %v", v, g.Float32())
		}
	}
}

func TestExtendedLengthStrings(t *testing.T) {
	long := strings.Repeat("x", 300)
	for _, s := range []string{"", "audio", long} {
		buf := AppendString(NewPacket(PacketCommand, CmdOpenInspector), TagClass, s)
		pkt, err := Parse(Terminate(buf))
		if err != nil {
			t.Fatalf("parse %d-byte string: %v", len(s), err)
		}
		f, _ := pkt.Lookup(TagClass)
		if f.String() != s {
			t.Fatalf("string %q decoded as %q", s, f.String())
		}
	}
}

func TestComplexBatchRoundTrip(t *testing.T) {
	in := []complex64{0, 1 + 2i, -0.5 - 0.25i, complex(3.25, -7)}
	buf := AppendComplex64(NewPacket(PacketEvent, EvSamples), TagSamples, in)
	pkt, err := Parse(Terminate(buf))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f, _ := pkt.Lookup(TagSamples)
	out, err := f.Complex64()
	if err != nil {
		t.Fatalf("decode samples: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("expected %d samples, got %d", len(in), len(out))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("sample %d: %v != %v", i, in[i], out[i])
		}
	}
}

func TestParseTruncatedPacket(t *testing.T) {
	buf := AppendUint32(NewPacket(PacketEvent, EvConfigAck), TagHandle, 7)
	// No terminator, and a field cut short.
	for _, b := range [][]byte{nil, {1}, buf, buf[:3]} {
		if _, err := Parse(b); !errors.Is(err, ErrShortPacket) {
			t.Fatalf("expected ErrShortPacket for %v, got %v", b, err)
		}
	}
}

func TestDuplicateTagsKeepOrder(t *testing.T) {
	buf := NewPacket(PacketEvent, EvConfigAck)
	buf = AppendUint32(buf, TagHandle, 1)
	buf = AppendUint32(buf, TagHandle, 2)
	pkt, err := Parse(Terminate(buf))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	f, _ := pkt.Lookup(TagHandle)
	if f.Uint32() != 1 {
		t.Fatalf("Lookup should return the first field, got %d", f.Uint32())
	}
}

func TestFrameRoundTrip(t *testing.T) {
	pkt := Terminate(AppendBool(NewPacket(PacketCommand, CmdCloseInspector), TagRequestID, true))

	var stream bytes.Buffer
	if err := WriteFrame(&stream, pkt); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := ReadFrame(&stream)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, pkt) {
		t.Fatalf("frame altered: %v != %v", got, pkt)
	}
}

func TestReadFrameRejectsOversize(t *testing.T) {
	var stream bytes.Buffer
	stream.Write([]byte{0xff, 0xff, 0xff, 0xff})
	if _, err := ReadFrame(&stream); err == nil {
		t.Fatal("expected an error for an oversized frame")
	}
}
