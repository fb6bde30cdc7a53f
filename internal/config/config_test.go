package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sigstream.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
remote:
  addr: radio.lan:28001
  dialTimeout: 2s
audio:
  sampleRate: 24000
  demod: usb
telemetry:
  enabled: false
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.Addr != "radio.lan:28001" {
		t.Fatalf("remote.addr not applied: %q", cfg.Remote.Addr)
	}
	if cfg.Remote.DialTimeout != 2*time.Second {
		t.Fatalf("dialTimeout not applied: %v", cfg.Remote.DialTimeout)
	}
	if cfg.Audio.SampleRate != 24000 || cfg.Audio.Demod != "usb" {
		t.Fatalf("audio overrides not applied: %+v", cfg.Audio)
	}
	if cfg.Telemetry.Enabled {
		t.Fatalf("telemetry.enabled override not applied")
	}
	// Untouched values keep their defaults.
	if cfg.Audio.Volume != 1 || cfg.Logging.Level != "info" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, "remote:\n  adress: oops:28001\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a misspelled key")
	}
}

func TestLoadRejectsBadDemod(t *testing.T) {
	path := writeConfig(t, "audio:\n  demod: cw\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for an unsupported demodulator")
	}
}

func TestLoadRequiresTunnelAddr(t *testing.T) {
	path := writeConfig(t, "remote:\n  ssh:\n    enabled: true\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected an error for a tunnel without an address")
	}
}
