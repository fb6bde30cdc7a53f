package audio

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Meter tracks the level of played audio batches. RMS is exponentially
// smoothed across batches; peak is per batch. Values are in dBFS.
type Meter struct {
	alpha float64
	power float64
	prime bool
}

// NewMeter builds a meter with the given smoothing factor in (0, 1];
// 1 disables smoothing.
func NewMeter(alpha float64) *Meter {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.3
	}
	return &Meter{alpha: alpha}
}

// Observe ingests one batch and returns the smoothed RMS and the batch peak
// in dBFS. Empty batches return the previous level and a silent peak.
func (m *Meter) Observe(batch []complex64) (rmsDB, peakDB float64) {
	if len(batch) == 0 {
		return m.rmsDB(), -120
	}

	re := make([]float64, len(batch))
	for i, s := range batch {
		re[i] = float64(real(s))
	}
	power := floats.Dot(re, re) / float64(len(re))

	for i := range re {
		re[i] = math.Abs(re[i])
	}
	peak := floats.Max(re)

	if !m.prime {
		m.power = power
		m.prime = true
	} else {
		m.power += m.alpha * (power - m.power)
	}

	return m.rmsDB(), dbfs(peak * peak)
}

func (m *Meter) rmsDB() float64 { return dbfs(m.power) }

func dbfs(power float64) float64 {
	if power <= 1e-12 {
		return -120
	}
	return 10 * math.Log10(power)
}
