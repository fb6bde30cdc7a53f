package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrShortPacket = errors.New("wire: packet truncated")
	ErrBadLength   = errors.New("wire: bad field length")
)

// Field is a decoded TLV field. Data holds the raw value bytes with leading
// zeros still suppressed; use the typed accessors to recover values.
type Field struct {
	Tag  byte
	Data []byte
}

// Packet is a decoded packet: type byte, opcode byte and the ordered field
// list. Duplicate tags are preserved in order.
type Packet struct {
	Type   byte
	Opcode byte
	Fields []Field
}

// Parse decodes a packet. The input must be a complete de-framed packet.
func Parse(b []byte) (*Packet, error) {
	if len(b) < 2 {
		return nil, ErrShortPacket
	}
	p := &Packet{Type: b[0], Opcode: b[1]}
	b = b[2:]
	for {
		if len(b) == 0 {
			return nil, ErrShortPacket
		}
		tag := b[0]
		b = b[1:]
		if tag == TagEOL {
			return p, nil
		}
		if len(b) == 0 {
			return nil, ErrShortPacket
		}
		length := int(b[0])
		b = b[1:]
		if length&0x80 != 0 {
			ext := length & 0x7f
			if ext != 2 {
				return nil, fmt.Errorf("%w: extended length of %d bytes", ErrBadLength, ext)
			}
			if len(b) < 2 {
				return nil, ErrShortPacket
			}
			length = int(b[0])<<8 | int(b[1])
			b = b[2:]
		}
		if len(b) < length {
			return nil, ErrShortPacket
		}
		p.Fields = append(p.Fields, Field{Tag: tag, Data: b[:length:length]})
		b = b[length:]
	}
}

// Lookup returns the first field carrying tag.
func (p *Packet) Lookup(tag byte) (Field, bool) {
	for _, f := range p.Fields {
		if f.Tag == tag {
			return f, true
		}
	}
	return Field{}, false
}

// Uint64 reassembles a zero-suppressed integer.
func (f Field) Uint64() uint64 {
	var v uint64
	for _, b := range f.Data {
		v = v<<8 | uint64(b)
	}
	return v
}

// Uint32 reassembles a zero-suppressed 32-bit integer.
func (f Field) Uint32() uint32 { return uint32(f.Uint64()) }

// Float64 reassembles a double from its zero-suppressed bit image.
func (f Field) Float64() float64 {
	return math.Float64frombits(f.Uint64())
}

// Float32 reassembles a float from its zero-suppressed bit image.
func (f Field) Float32() float32 {
	return math.Float32frombits(uint32(f.Uint64()))
}

// Bool interprets a single-byte field.
func (f Field) Bool() bool {
	return len(f.Data) > 0 && f.Data[0] != 0
}

// String returns the field bytes as a string.
func (f Field) String() string { return string(f.Data) }

// Complex64 decodes an interleaved big-endian float32 I/Q payload.
func (f Field) Complex64() ([]complex64, error) {
	if len(f.Data)%8 != 0 {
		return nil, fmt.Errorf("%w: sample payload of %d bytes", ErrBadLength, len(f.Data))
	}
	out := make([]complex64, len(f.Data)/8)
	for i := range out {
		re := math.Float32frombits(binary.BigEndian.Uint32(f.Data[i*8:]))
		im := math.Float32frombits(binary.BigEndian.Uint32(f.Data[i*8+4:]))
		out[i] = complex(re, im)
	}
	return out, nil
}
