package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrame bounds inbound frames. The largest legitimate payload is a sample
// batch; anything beyond this indicates a desynchronized stream.
const MaxFrame = 1 << 20

// WriteFrame writes a 4-byte big-endian length prefix followed by the packet.
func WriteFrame(w io.Writer, pkt []byte) error {
	if len(pkt) > MaxFrame {
		return fmt.Errorf("wire: frame of %d bytes exceeds limit", len(pkt))
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(pkt)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(pkt)
	return err
}

// ReadFrame reads one length-prefixed packet from the stream.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n == 0 || n > MaxFrame {
		return nil, fmt.Errorf("wire: invalid frame length %d", n)
	}
	pkt := make([]byte, n)
	if _, err := io.ReadFull(r, pkt); err != nil {
		return nil, err
	}
	return pkt, nil
}
