package audio

import (
	"fmt"
	"strings"
)

// Demod selects the demodulator the remote inspector runs on the channel.
type Demod int

const (
	DemodAM Demod = iota
	DemodFM
	DemodUSB
	DemodLSB
)

func (d Demod) String() string {
	switch d {
	case DemodAM:
		return "am"
	case DemodFM:
		return "fm"
	case DemodUSB:
		return "usb"
	case DemodLSB:
		return "lsb"
	default:
		return "unknown"
	}
}

// ParseDemod converts a mode name to a Demod.
func ParseDemod(s string) (Demod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "am":
		return DemodAM, nil
	case "fm", "":
		return DemodFM, nil
	case "usb":
		return DemodUSB, nil
	case "lsb":
		return DemodLSB, nil
	default:
		return Demod(0), fmt.Errorf("unsupported demodulator %q", s)
	}
}
