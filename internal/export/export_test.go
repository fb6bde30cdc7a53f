package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/wav"
)

func TestWriteWAVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.wav")
	samples := []float64{0, 0.5, -0.5, 1, -1, 2, -2} // last two clip

	if err := WriteWAV(path, samples, 48000); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if buf.Format.SampleRate != 48000 || buf.Format.NumChannels != 1 {
		t.Fatalf("unexpected format: %+v", buf.Format)
	}
	if len(buf.Data) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(buf.Data))
	}
	if buf.Data[0] != 0 {
		t.Fatalf("expected silence first, got %d", buf.Data[0])
	}
	if buf.Data[5] != 32767 || buf.Data[6] != -32767 {
		t.Fatalf("clipping failed: %d %d", buf.Data[5], buf.Data[6])
	}
}

func TestWriteMatlab(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.m")
	if err := WriteMatlab(path, "iq", []complex64{1 + 2i, -0.5 - 0.25i}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	body := string(data)
	if !strings.HasPrefix(body, "iq = [") || !strings.HasSuffix(strings.TrimSpace(body), "];") {
		t.Fatalf("malformed script: %q", body)
	}
	if !strings.Contains(body, "1+2i") {
		t.Fatalf("missing sample: %q", body)
	}
}

func TestRealExtraction(t *testing.T) {
	got := Real([]complex64{1 + 5i, -2})
	if len(got) != 2 || got[0] != 1 || got[1] != -2 {
		t.Fatalf("unexpected result: %v", got)
	}
}
