// Package orbit carries the orbital elements used for Doppler correction of
// an open audio channel. The remote analyzer runs the actual propagator; this
// side only parses and ships the elements.
package orbit

import (
	"fmt"
	"strconv"
	"strings"
)

// Orbit is a set of Keplerian elements in TLE convention. Angles are in
// degrees, mean motion in revolutions per day.
type Orbit struct {
	Name         string
	SatelliteID  uint32
	EpochYear    int
	EpochDay     float64
	Inclination  float64
	RAAN         float64
	Eccentricity float64
	ArgPerigee   float64
	MeanAnomaly  float64
	MeanMotion   float64
	BStar        float64
}

// ParseTLE builds an Orbit from a name line and the two element lines.
// Both element lines must carry a valid modulo-10 checksum.
func ParseTLE(name, line1, line2 string) (Orbit, error) {
	var o Orbit

	if len(line1) < 69 || len(line2) < 69 {
		return o, fmt.Errorf("orbit: element line shorter than 69 columns")
	}
	if line1[0] != '1' || line2[0] != '2' {
		return o, fmt.Errorf("orbit: element lines out of order")
	}
	for i, line := range []string{line1, line2} {
		if err := verifyChecksum(line); err != nil {
			return o, fmt.Errorf("orbit: line %d: %w", i+1, err)
		}
	}

	o.Name = strings.TrimSpace(name)

	id, err := strconv.ParseUint(strings.TrimSpace(line1[2:7]), 10, 32)
	if err != nil {
		return o, fmt.Errorf("orbit: satellite number: %w", err)
	}
	o.SatelliteID = uint32(id)

	year, err := strconv.Atoi(strings.TrimSpace(line1[18:20]))
	if err != nil {
		return o, fmt.Errorf("orbit: epoch year: %w", err)
	}
	// Two-digit years: the TLE convention pivots at 57 (Sputnik).
	if year < 57 {
		o.EpochYear = 2000 + year
	} else {
		o.EpochYear = 1900 + year
	}

	fields := []struct {
		dst  *float64
		text string
		name string
	}{
		{&o.EpochDay, line1[20:32], "epoch day"},
		{&o.Inclination, line2[8:16], "inclination"},
		{&o.RAAN, line2[17:25], "raan"},
		{&o.ArgPerigee, line2[34:42], "argument of perigee"},
		{&o.MeanAnomaly, line2[43:51], "mean anomaly"},
		{&o.MeanMotion, line2[52:63], "mean motion"},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f.text), 64)
		if err != nil {
			return o, fmt.Errorf("orbit: %s: %w", f.name, err)
		}
		*f.dst = v
	}

	// Eccentricity is printed without the leading "0.".
	ecc, err := strconv.ParseFloat("0."+strings.TrimSpace(line2[26:33]), 64)
	if err != nil {
		return o, fmt.Errorf("orbit: eccentricity: %w", err)
	}
	o.Eccentricity = ecc

	bstar, err := parseExponential(line1[53:61])
	if err != nil {
		return o, fmt.Errorf("orbit: bstar: %w", err)
	}
	o.BStar = bstar

	return o, nil
}

// parseExponential decodes the compact TLE exponential form "±NNNNN±E"
// meaning ±0.NNNNN × 10^±E.
func parseExponential(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return 0, nil
	}
	mantissa := s[:len(s)-2]
	exponent := s[len(s)-2:]

	sign := 1.0
	if strings.HasPrefix(mantissa, "-") {
		sign = -1
		mantissa = mantissa[1:]
	} else {
		mantissa = strings.TrimPrefix(mantissa, "+")
	}
	m, err := strconv.ParseFloat("0."+mantissa, 64)
	if err != nil {
		return 0, err
	}
	e, err := strconv.Atoi(strings.TrimPrefix(exponent, "+"))
	if err != nil {
		return 0, err
	}
	for ; e > 0; e-- {
		m *= 10
	}
	for ; e < 0; e++ {
		m /= 10
	}
	return sign * m, nil
}

func verifyChecksum(line string) error {
	sum := 0
	for _, r := range line[:68] {
		switch {
		case r >= '0' && r <= '9':
			sum += int(r - '0')
		case r == '-':
			sum++
		}
	}
	want := int(line[68] - '0')
	if sum%10 != want {
		return fmt.Errorf("checksum %d does not match %d", sum%10, want)
	}
	return nil
}
