// Package export writes captured audio batches to files.
package export

import (
	"bufio"
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes real-valued audio samples to a 16-bit mono WAV file. The
// samples are expected in [-1, 1]; values outside are clipped.
func WriteWAV(path string, samples []float64, sampleRate uint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, int(sampleRate), 16, 1, 1)

	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: int(sampleRate)},
		SourceBitDepth: 16,
		Data:           make([]int, len(samples)),
	}
	for i, s := range samples {
		buf.Data[i] = int(clip(s) * 32767)
	}

	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("export: finalize %s: %w", path, err)
	}
	return nil
}

// WriteMatlab writes complex batches as a MATLAB/Octave script defining a
// complex row vector named by varName.
func WriteMatlab(path, varName string, samples []complex64) error {
	if varName == "" {
		varName = "x"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "%s = [", varName)
	for i, s := range samples {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "%g%+gi", real(s), imag(s))
	}
	fmt.Fprintln(w, "];")
	if err := w.Flush(); err != nil {
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	return nil
}

// Real extracts the real part of a complex batch, the audible signal after
// demodulation.
func Real(samples []complex64) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(real(s))
	}
	return out
}

func clip(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
