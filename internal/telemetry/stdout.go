package telemetry

import (
	"github.com/sigstream/sigstream/internal/logging"
)

// LogSink writes telemetry events to the structured log. Useful for headless
// runs where the web endpoints are disabled.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink builds a log sink with the provided logger.
func NewLogSink(logger logging.Logger) LogSink {
	if logger == nil {
		logger = logging.Nop()
	}
	return LogSink{logger: logger}
}

func (s LogSink) Publish(ev Event) {
	fields := []logging.Field{
		logging.F("subsystem", "telemetry"),
		logging.F("kind", ev.Kind),
	}
	if ev.Detail != "" {
		fields = append(fields, logging.F("detail", ev.Detail))
	}
	if ev.Kind == KindLevel {
		fields = append(fields,
			logging.F("rms_dbfs", ev.RMS),
			logging.F("peak_dbfs", ev.Peak))
	}
	if ev.Kind == KindError {
		s.logger.Warn("telemetry event", fields...)
		return
	}
	s.logger.Info("telemetry event", fields...)
}
