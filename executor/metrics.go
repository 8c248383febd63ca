package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the executor's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	statements *prometheus.CounterVec
	duration   prometheus.Histogram
	cache      *prometheus.CounterVec
}

// NewMetrics registers the collectors with registerer, or with a private
// registry when registerer is nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.NewRegistry()
	}
	factory := promauto.With(registerer)
	return &Metrics{
		statements: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fireant_statements_total",
				Help: "Number of executed SQL statements.",
			},
			[]string{"status"},
		),
		duration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "fireant_statement_duration_seconds",
				Help:    "Wall-clock time of executed SQL statements.",
				Buckets: prometheus.ExponentialBuckets(0.005, 4, 9),
			},
		),
		cache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fireant_result_cache_lookups_total",
				Help: "Result cache lookups by outcome.",
			},
			[]string{"outcome"},
		),
	}
}

func (m *Metrics) observe(elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.statements.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}

func (m *Metrics) cacheHit() {
	if m != nil {
		m.cache.WithLabelValues("hit").Inc()
	}
}

func (m *Metrics) cacheMiss() {
	if m != nil {
		m.cache.WithLabelValues("miss").Inc()
	}
}
