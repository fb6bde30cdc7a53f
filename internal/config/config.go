// Package config loads the daemon configuration from a YAML file, filling
// unset values with defaults.
package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sigstream/sigstream/internal/audio"
)

// Config is the root daemon configuration.
type Config struct {
	Remote    Remote    `yaml:"remote"`
	Audio     Audio     `yaml:"audio"`
	Telemetry Telemetry `yaml:"telemetry"`
	Logging   Logging   `yaml:"logging"`
}

// Remote describes the analyzer endpoint.
type Remote struct {
	Addr         string        `yaml:"addr"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	MaxRetryTime time.Duration `yaml:"maxRetryTime"`
	SSH          SSH           `yaml:"ssh"`
}

// SSH configures an optional SSH tunnel to reach the analyzer.
type SSH struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	User    string `yaml:"user"`
	KeyFile string `yaml:"keyFile"`
}

// Audio holds the initial audio channel intent.
type Audio struct {
	Enabled      bool    `yaml:"enabled"`
	SampleRate   uint    `yaml:"sampleRate"`
	CutOff       float64 `yaml:"cutOff"`
	Volume       float32 `yaml:"volume"`
	Demod        string  `yaml:"demod"`
	Squelch      bool    `yaml:"squelch"`
	SquelchLevel float64 `yaml:"squelchLevel"`
	DemodFreq    float64 `yaml:"demodFreq"`
	DeviceRate   uint    `yaml:"deviceRate"`
	BufferMs     int     `yaml:"bufferMs"`
}

// Telemetry configures the event hub and its HTTP endpoints.
type Telemetry struct {
	Enabled      bool   `yaml:"enabled"`
	Addr         string `yaml:"addr"`
	HistoryLimit int    `yaml:"historyLimit"`
	Metrics      bool   `yaml:"metrics"`
}

// Logging configures log output.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Remote: Remote{
			Addr:         "localhost:28001",
			DialTimeout:  5 * time.Second,
			MaxRetryTime: 30 * time.Second,
		},
		Audio: Audio{
			Enabled:    true,
			SampleRate: audio.DefaultSampleRate,
			CutOff:     audio.InspectorBandwidth / 2,
			Volume:     1,
			Demod:      "fm",
			DeviceRate: audio.DefaultSampleRate,
			BufferMs:   500,
		},
		Telemetry: Telemetry{
			Enabled:      true,
			Addr:         "127.0.0.1:8080",
			HistoryLimit: 500,
			Metrics:      true,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML configuration file over the defaults. Unknown keys are
// rejected so typos surface immediately.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Remote.Addr == "" {
		return fmt.Errorf("remote.addr must be set")
	}
	if c.Audio.SampleRate == 0 {
		return fmt.Errorf("audio.sampleRate must be positive")
	}
	if _, err := audio.ParseDemod(c.Audio.Demod); err != nil {
		return err
	}
	if c.Remote.SSH.Enabled && c.Remote.SSH.Addr == "" {
		return fmt.Errorf("remote.ssh.addr must be set when the tunnel is enabled")
	}
	return nil
}
