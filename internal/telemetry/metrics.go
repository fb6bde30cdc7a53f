package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes audio channel counters and gauges on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	opens  prometheus.Counter
	errors prometheus.Counter
	events *prometheus.CounterVec
	rms    prometheus.Gauge
	peak   prometheus.Gauge
}

// NewMetrics builds the metric set and registers it.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		opens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sigstream",
			Subsystem: "audio",
			Name:      "opens_total",
			Help:      "Completed audio channel open handshakes.",
		}),
		errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sigstream",
			Subsystem: "audio",
			Name:      "errors_total",
			Help:      "Audio channel errors surfaced to the user.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sigstream",
			Subsystem: "telemetry",
			Name:      "events_total",
			Help:      "Telemetry events published, by kind.",
		}, []string{"kind"}),
		rms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sigstream",
			Subsystem: "audio",
			Name:      "level_rms_dbfs",
			Help:      "Smoothed playback RMS level in dBFS.",
		}),
		peak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sigstream",
			Subsystem: "audio",
			Name:      "level_peak_dbfs",
			Help:      "Last batch peak level in dBFS.",
		}),
	}
	m.registry.MustRegister(m.opens, m.errors, m.events, m.rms, m.peak)
	return m
}

// Registry returns the backing registry for HTTP exposition.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) observe(ev Event) {
	m.events.WithLabelValues(ev.Kind).Inc()
	switch ev.Kind {
	case KindOpened:
		m.opens.Inc()
	case KindError:
		m.errors.Inc()
	case KindLevel:
		m.rms.Set(ev.RMS)
		m.peak.Set(ev.Peak)
	}
}
