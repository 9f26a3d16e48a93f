package poller

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig holds the naming of poller collectors.
type MetricsConfig struct {
	// Namespace is the prefix for all metrics (default: "orderwatch")
	Namespace string
	// Subsystem is an optional subsystem name (default: "poller")
	Subsystem string
	// Buckets defines the histogram buckets for fetch latency
	Buckets []float64
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "orderwatch",
		Subsystem: "poller",
		Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
	}
}

// Metrics holds the Prometheus collectors for verification sessions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	fetchesTotal   *prometheus.CounterVec
	fetchDuration  prometheus.Histogram
	sessionsTotal  *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

// NewMetrics registers the poller collectors on reg.
func NewMetrics(reg prometheus.Registerer, cfg MetricsConfig) *Metrics {
	if cfg.Namespace == "" {
		cfg.Namespace = "orderwatch"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "poller"
	}
	if len(cfg.Buckets) == 0 {
		cfg.Buckets = DefaultMetricsConfig().Buckets
	}
	factory := promauto.With(reg)

	return &Metrics{
		fetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fetches_total",
				Help:      "Order status fetches by outcome.",
			},
			[]string{"outcome"},
		),
		fetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "fetch_duration_seconds",
				Help:      "Order status fetch latency in seconds.",
				Buckets:   cfg.Buckets,
			},
		),
		sessionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_total",
				Help:      "Finished verification sessions by final phase.",
			},
			[]string{"phase"},
		),
		sessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "sessions_active",
				Help:      "Verification sessions currently running.",
			},
		),
	}
}

func (m *Metrics) observeFetch(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.fetchesTotal.WithLabelValues(outcome).Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) sessionStarted() {
	if m == nil {
		return
	}
	m.sessionsActive.Inc()
}

func (m *Metrics) sessionEnded(phase Phase) {
	if m == nil {
		return
	}
	m.sessionsActive.Dec()
	label := string(phase)
	if !phase.Final() {
		label = "CANCELLED"
	}
	m.sessionsTotal.WithLabelValues(label).Inc()
}
