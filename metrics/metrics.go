// Package metrics exposes Prometheus instrumentation for the validation
// engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics is valid
// and records nothing, so instrumentation stays optional.
type Metrics struct {
	validations  *prometheus.CounterVec
	analyzerRuns *prometheus.CounterVec
	retries      prometheus.Counter
	duration     prometheus.Histogram
}

// New registers the engine collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactguard_validations_total",
			Help: "Validation runs by terminal status.",
		}, []string{"status"}),
		analyzerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "artifactguard_analyzer_runs_total",
			Help: "Analyzer family executions by outcome.",
		}, []string{"family", "outcome"}),
		retries: factory.NewCounter(prometheus.CounterOpts{
			Name: "artifactguard_retries_total",
			Help: "Validation attempts retried after a transient failure.",
		}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "artifactguard_validation_duration_seconds",
			Help:    "Wall-clock duration of validation runs.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

// ObserveValidation records one terminal validation outcome.
func (m *Metrics) ObserveValidation(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.validations.WithLabelValues(status).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// ObserveAnalyzer records one analyzer family execution.
func (m *Metrics) ObserveAnalyzer(family, outcome string) {
	if m == nil {
		return
	}
	m.analyzerRuns.WithLabelValues(family, outcome).Inc()
}

// ObserveRetry records one retried attempt.
func (m *Metrics) ObserveRetry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}
