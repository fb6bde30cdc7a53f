// Command sigdump opens an audio channel on a remote analyzer, captures a
// fixed duration of demodulated audio and writes it to a WAV or MATLAB file.
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
	"github.com/sigstream/sigstream/internal/export"
	"github.com/sigstream/sigstream/internal/logging"
)

func main() {
	var (
		addr     = flag.String("addr", "localhost:28001", "Analyzer address")
		out      = flag.String("out", "capture.wav", "Output file (.wav or .m)")
		duration = flag.Duration("duration", 10*time.Second, "Capture duration")
		rate     = flag.Uint("rate", audio.DefaultSampleRate, "Audio sample rate in Hz")
		demod    = flag.String("demod", "fm", "Demodulator: am, fm, usb or lsb")
		freq     = flag.Float64("freq", 0, "Channel center frequency offset in Hz")
		verbose  = flag.Bool("v", false, "Verbose logging")
	)
	flag.Parse()

	level := logging.Warn
	if *verbose {
		level = logging.Debug
	}
	log := logging.New(level, logging.Text, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := capture(ctx, *addr, *out, *duration, *rate, *demod, *freq, log); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func capture(ctx context.Context, addr, out string, duration time.Duration,
	rate uint, demodName string, freq float64, log logging.Logger) error {

	demod, err := audio.ParseDemod(demodName)
	if err != nil {
		return err
	}

	sink := &captureSink{rate: rate}
	var failure error
	notifier := audio.NotifierFuncs{
		Opened: func() { fmt.Fprintln(os.Stderr, "channel open, capturing...") },
		Error:  func(msg string) { failure = fmt.Errorf("audio channel: %s", msg) },
	}

	proc := audio.NewProcessor(sink, notifier, log)
	router := audio.NewRouter(proc)
	proc.SetSampleRate(rate)
	proc.SetDemod(demod)
	proc.SetDemodFreq(freq)

	var captured []complex64
	var deadline <-chan time.Time
	opened := false
	proc.OnBatch = func(batch []complex64, silent bool) {
		if silent {
			return
		}
		captured = append(captured, batch...)
	}

	remote, err := analyzer.Dial(addr, analyzer.DialOptions{Logger: log})
	if err != nil {
		return err
	}
	defer remote.Close()

	go func() {
		<-ctx.Done()
		remote.Close()
	}()

	proc.SetEnabled(true)
	proc.SetAnalyzer(remote)

	events := remote.Events()
	for {
		if failure != nil {
			return failure
		}
		if proc.Opened() && !opened {
			opened = true
			t := time.NewTimer(duration)
			defer t.Stop()
			deadline = t.C
		}

		select {
		case ev, ok := <-events:
			if !ok {
				if ctx.Err() != nil {
					return write(out, captured, proc)
				}
				return fmt.Errorf("analyzer connection lost after %d samples", len(captured))
			}
			router.Dispatch(ev)
		case <-deadline:
			proc.SetEnabled(false)
			return write(out, captured, proc)
		}
	}
}

func write(out string, captured []complex64, proc *audio.Processor) error {
	if len(captured) == 0 {
		return fmt.Errorf("nothing captured")
	}
	fmt.Fprintf(os.Stderr, "writing %d samples to %s\n", len(captured), out)
	if strings.HasSuffix(out, ".m") {
		return export.WriteMatlab(out, "audio", captured)
	}
	return export.WriteWAV(out, export.Real(captured), proc.SampleRate())
}

// captureSink is a playback that discards audio; batches are collected
// through the processor's batch observer instead.
type captureSink struct {
	rate    uint
	started bool
}

func (c *captureSink) Start()               { c.started = true }
func (c *captureSink) Stop()                { c.started = false }
func (c *captureSink) SetSampleRate(r uint) { c.rate = r }
func (c *captureSink) SampleRate() uint     { return c.rate }
func (c *captureSink) SetVolume(float32)    {}
func (c *captureSink) Write([]complex64)    {}
