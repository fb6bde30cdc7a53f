// Package wire implements the TLV packet codec spoken between sigstream and
// a remote analyzer daemon. Values are encoded big-endian with leading zero
// bytes suppressed, so small integers and zero-heavy float bit images stay
// short on the wire.
package wire

import (
	"encoding/binary"
	"math"
)

// Packet type, first byte of every frame.
const (
	PacketCommand byte = 1
	PacketEvent   byte = 2
)

// Command opcodes, second byte of a command packet.
const (
	CmdOpenInspector byte = iota + 1
	CmdCloseInspector
	CmdSetConfig
	CmdSetFreq
	CmdSetDoppler
)

// Event opcodes, second byte of an event packet.
const (
	EvHello byte = iota + 1
	EvInspectorOpened
	EvConfigAck
	EvWrongKind
	EvWrongObject
	EvWrongHandle
	EvSamples
	EvRequestError
)

// Field tags. Tag 0 terminates the field list.
const (
	TagEOL         byte = 0x00
	TagRequestID   byte = 0x01
	TagHandle      byte = 0x10
	TagInspectorID byte = 0x12
	TagClass       byte = 0x15
	TagFrequency   byte = 0x21
	TagLowEdge     byte = 0x27
	TagHighEdge    byte = 0x28
	TagBandwidth   byte = 0x29
	TagTrackFreq   byte = 0x2a
	TagSampleRate  byte = 0x30
	TagConfig      byte = 0x40
	TagOrbit       byte = 0x41
	TagSamples     byte = 0x50
	TagMessage     byte = 0x60
)

// NewPacket starts a packet of the given type and opcode. Append fields with
// the Append* helpers and finish with Terminate before framing.
func NewPacket(ptype, opcode byte) []byte {
	buf := make([]byte, 0, 256)
	buf = append(buf, ptype, opcode)
	return buf
}

// Terminate closes the field list.
func Terminate(buf []byte) []byte {
	return append(buf, TagEOL)
}

// AppendUint64 appends an integer field, suppressing leading zero bytes.
func AppendUint64(buf []byte, tag byte, v uint64) []byte {
	buf = append(buf, tag)
	if v == 0 {
		return append(buf, 0)
	}
	length := 8
	for length > 0 && (v>>56) == 0 {
		v <<= 8
		length--
	}
	buf = append(buf, byte(length))
	for i := 0; i < length; i++ {
		buf = append(buf, byte(v>>56))
		v <<= 8
	}
	return buf
}

// AppendUint32 appends a 32-bit integer field.
func AppendUint32(buf []byte, tag byte, v uint32) []byte {
	return AppendUint64(buf, tag, uint64(v))
}

// AppendFloat64 appends a double field as its IEEE 754 bit image.
func AppendFloat64(buf []byte, tag byte, v float64) []byte {
	return AppendUint64(buf, tag, math.Float64bits(v))
}

// AppendFloat32 appends a float field as its IEEE 754 bit image.
func AppendFloat32(buf []byte, tag byte, v float32) []byte {
	buf = append(buf, tag)
	bits := math.Float32bits(v)
	if bits == 0 {
		return append(buf, 0)
	}
	length := 4
	for length > 0 && (bits>>24) == 0 {
		bits <<= 8
		length--
	}
	buf = append(buf, byte(length))
	for i := 0; i < length; i++ {
		buf = append(buf, byte(bits>>24))
		bits <<= 8
	}
	return buf
}

// AppendBool appends a single-byte boolean field.
func AppendBool(buf []byte, tag byte, v bool) []byte {
	b := byte(0)
	if v {
		b = 1
	}
	return append(buf, tag, 1, b)
}

// AppendString appends a string field. Lengths of 128 bytes and above use a
// two-byte extended length prefix.
func AppendString(buf []byte, tag byte, s string) []byte {
	return AppendBytes(buf, tag, []byte(s))
}

// AppendBytes appends an opaque byte field, used for nested payloads such as
// serialized configs and sample batches.
func AppendBytes(buf []byte, tag byte, b []byte) []byte {
	buf = append(buf, tag)
	if len(b) < 0x80 {
		buf = append(buf, byte(len(b)))
	} else {
		buf = append(buf, 0x80|2, byte(len(b)>>8), byte(len(b)))
	}
	return append(buf, b...)
}

// AppendComplex64 appends a sample batch as interleaved big-endian float32
// I/Q pairs.
func AppendComplex64(buf []byte, tag byte, samples []complex64) []byte {
	payload := make([]byte, 0, len(samples)*8)
	var scratch [4]byte
	for _, s := range samples {
		binary.BigEndian.PutUint32(scratch[:], math.Float32bits(real(s)))
		payload = append(payload, scratch[:]...)
		binary.BigEndian.PutUint32(scratch[:], math.Float32bits(imag(s)))
		payload = append(payload, scratch[:]...)
	}
	return AppendBytes(buf, tag, payload)
}
