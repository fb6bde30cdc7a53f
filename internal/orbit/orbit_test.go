package orbit

import (
	"math"
	"strings"
	"testing"
)

const (
	issName  = "ISS (ZARYA)"
	issLine1 = "1 25544U 98067A   08264.51782528 -.00002182  00000-0 -11606-4 0  2927"
	issLine2 = "2 25544  51.6416 247.4627 0006703 130.5360 325.0288 15.72125391563537"
)

func TestParseTLE(t *testing.T) {
	o, err := ParseTLE(issName, issLine1, issLine2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if o.Name != "ISS (ZARYA)" {
		t.Fatalf("name %q", o.Name)
	}
	if o.SatelliteID != 25544 {
		t.Fatalf("satellite id %d", o.SatelliteID)
	}
	if o.EpochYear != 2008 {
		t.Fatalf("epoch year %d", o.EpochYear)
	}
	if o.EpochDay != 264.51782528 {
		t.Fatalf("epoch day %v", o.EpochDay)
	}
	if o.Inclination != 51.6416 || o.RAAN != 247.4627 {
		t.Fatalf("plane elements: incl=%v raan=%v", o.Inclination, o.RAAN)
	}
	if o.Eccentricity != 0.0006703 {
		t.Fatalf("eccentricity %v", o.Eccentricity)
	}
	if o.ArgPerigee != 130.5360 || o.MeanAnomaly != 325.0288 {
		t.Fatalf("anomaly elements: argp=%v ma=%v", o.ArgPerigee, o.MeanAnomaly)
	}
	if o.MeanMotion != 15.72125391 {
		t.Fatalf("mean motion %v", o.MeanMotion)
	}
	if math.Abs(o.BStar-(-1.1606e-5)) > 1e-12 {
		t.Fatalf("bstar %v", o.BStar)
	}
}

func TestParseTLERejectsBadChecksum(t *testing.T) {
	bad := issLine1[:68] + "0"
	if _, err := ParseTLE(issName, bad, issLine2); err == nil {
		t.Fatal("expected a checksum error")
	}
}

func TestParseTLERejectsSwappedLines(t *testing.T) {
	if _, err := ParseTLE(issName, issLine2, issLine1); err == nil {
		t.Fatal("expected an ordering error")
	}
}

func TestParseTLERejectsShortLines(t *testing.T) {
	if _, err := ParseTLE(issName, issLine1[:40], issLine2); err == nil {
		t.Fatal("expected a length error")
	}
}

func TestEpochYearPivot(t *testing.T) {
	// Years below 57 land in the 2000s, the rest in the 1900s.
	line1 := strings.Replace(issLine1, "08264", "57264", 1)
	// Fix up the checksum after editing the year digits.
	line1 = line1[:68] + recomputeChecksum(line1)

	o, err := ParseTLE(issName, line1, issLine2)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if o.EpochYear != 1957 {
		t.Fatalf("epoch year %d, want 1957", o.EpochYear)
	}
}

func recomputeChecksum(line string) string {
	sum := 0
	for _, r := range line[:68] {
		switch {
		case r >= '0' && r <= '9':
			sum += int(r - '0')
		case r == '-':
			sum++
		}
	}
	return string(rune('0' + sum%10))
}

func TestParseExponential(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{" 00000-0", 0},
		{" 11606-4", 1.1606e-5},
		{"-11606-4", -1.1606e-5},
		{" 12345+1", 1.2345},
		{"", 0},
	}
	for _, tc := range cases {
		got, err := parseExponential(tc.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.in, err)
		}
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("parse %q = %v, want %v", tc.in, got, tc.want)
		}
	}
}
