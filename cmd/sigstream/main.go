// Command sigstream connects to a remote analyzer daemon, opens a
// demodulated audio channel and plays it on the local audio device,
// exposing lifecycle telemetry over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sigstream/sigstream/internal/analyzer"
	"github.com/sigstream/sigstream/internal/audio"
	"github.com/sigstream/sigstream/internal/config"
	"github.com/sigstream/sigstream/internal/logging"
	"github.com/sigstream/sigstream/internal/orbit"
	"github.com/sigstream/sigstream/internal/telemetry"
	"github.com/sigstream/sigstream/internal/tunnel"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to the YAML configuration file")
		addr       = flag.String("addr", "", "Analyzer address (overrides the config file)")
		webAddr    = flag.String("web-addr", "", "Telemetry listen address (overrides the config file)")
		demod      = flag.String("demod", "", "Demodulator: am, fm, usb or lsb (overrides the config file)")
		demodFreq  = flag.Float64("freq", 0, "Channel center frequency offset in Hz")
		tlePath    = flag.String("tle", "", "TLE file enabling Doppler correction")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cfg = loaded
	}
	if *addr != "" {
		cfg.Remote.Addr = *addr
	}
	if *webAddr != "" {
		cfg.Telemetry.Addr = *webAddr
		cfg.Telemetry.Enabled = true
	}
	if *demod != "" {
		cfg.Audio.Demod = *demod
	}
	if *demodFreq != 0 {
		cfg.Audio.DemodFreq = *demodFreq
	}

	log, err := buildLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *tlePath, log); err != nil {
		log.Error("daemon failed", logging.F("err", err))
		os.Exit(1)
	}
}

func buildLogger(cfg config.Logging) (logging.Logger, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	return logging.New(level, format, os.Stderr), nil
}

func run(ctx context.Context, cfg config.Config, tlePath string, log logging.Logger) error {
	demod, err := audio.ParseDemod(cfg.Audio.Demod)
	if err != nil {
		return err
	}

	var pb audio.Playback
	device, err := audio.NewDevicePlayback(cfg.Audio.DeviceRate, cfg.Audio.BufferMs)
	if err != nil {
		// The processor reports the dead sink on the first open attempt.
		log.Error("playback device unavailable", logging.F("err", err))
	} else {
		pb = device
	}

	var hub *telemetry.Hub
	var notifier audio.Notifier
	if cfg.Telemetry.Enabled {
		var metrics *telemetry.Metrics
		if cfg.Telemetry.Metrics {
			metrics = telemetry.NewMetrics()
		}
		hub = telemetry.NewHub(cfg.Telemetry.HistoryLimit, metrics)
		notifier = hub
		go telemetry.NewWebServer(cfg.Telemetry.Addr, hub, metrics, log).Start(ctx)
		log.Info("telemetry listening", logging.F("addr", cfg.Telemetry.Addr))
	} else {
		sink := telemetry.NewLogSink(log)
		notifier = audio.NotifierFuncs{
			Opened: func() { sink.Publish(telemetry.Event{Kind: telemetry.KindOpened}) },
			Error:  func(msg string) { sink.Publish(telemetry.Event{Kind: telemetry.KindError, Detail: msg}) },
		}
	}

	proc := audio.NewProcessor(pb, notifier, log)
	router := audio.NewRouter(proc)

	proc.SetSampleRate(cfg.Audio.SampleRate)
	proc.SetCutOff(cfg.Audio.CutOff)
	proc.SetVolume(cfg.Audio.Volume)
	proc.SetDemod(demod)
	proc.SetSquelchEnabled(cfg.Audio.Squelch)
	proc.SetSquelchLevel(cfg.Audio.SquelchLevel)
	proc.SetDemodFreq(cfg.Audio.DemodFreq)

	if tlePath != "" {
		orb, err := loadTLE(tlePath)
		if err != nil {
			return err
		}
		proc.SetAudioCorrection(orb)
		proc.SetCorrectionEnabled(true)
		log.Info("doppler correction enabled",
			logging.F("satellite", orb.Name), logging.F("id", orb.SatelliteID))
	}

	if hub != nil {
		meter := audio.NewMeter(0.3)
		batches := 0
		proc.OnBatch = func(batch []complex64, silent bool) {
			rms, peak := meter.Observe(batch)
			if batches++; batches%20 == 0 && !silent {
				hub.ObserveLevel(rms, peak)
			}
		}
	}

	proc.SetEnabled(cfg.Audio.Enabled)

	dialOpts := analyzer.DialOptions{
		Timeout:      cfg.Remote.DialTimeout,
		MaxRetryTime: cfg.Remote.MaxRetryTime,
		Logger:       log,
	}
	if cfg.Remote.SSH.Enabled {
		dialer, err := tunnel.NewDialer(tunnel.Config{
			Addr:    cfg.Remote.SSH.Addr,
			User:    cfg.Remote.SSH.User,
			KeyPath: cfg.Remote.SSH.KeyFile,
			Timeout: cfg.Remote.DialTimeout,
		})
		if err != nil {
			return err
		}
		defer dialer.Close()
		dialOpts.Dialer = dialer.Dial
		log.Info("routing through ssh tunnel", logging.F("via", cfg.Remote.SSH.Addr))
	}

	// Connection loop: dial, pump events until the stream dies, reconnect.
	for {
		remote, err := analyzer.Dial(cfg.Remote.Addr, dialOpts)
		if err != nil {
			return err
		}
		if hub != nil {
			hub.State("connected")
		}

		connDone := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				remote.Close()
			case <-connDone:
			}
		}()

		proc.SetAnalyzer(remote)
		router.Pump(remote.Events())
		proc.SetAnalyzer(nil)
		remote.Close()
		close(connDone)

		if ctx.Err() != nil {
			log.Info("shutting down")
			return nil
		}
		if hub != nil {
			hub.State("disconnected")
		}
		log.Warn("analyzer connection lost, reconnecting",
			logging.F("addr", cfg.Remote.Addr))
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return nil
		}
	}
}

// loadTLE reads a three-line element file: name line plus the two element
// lines.
func loadTLE(path string) (orbit.Orbit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return orbit.Orbit{}, fmt.Errorf("read tle: %w", err)
	}
	lines := []string{}
	for _, l := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, strings.TrimRight(l, "\r"))
		}
	}
	if len(lines) < 3 {
		return orbit.Orbit{}, fmt.Errorf("tle file %s needs a name line and two element lines", path)
	}
	return orbit.ParseTLE(lines[0], lines[1], lines[2])
}
