package reasoner

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semreason/metric"
)

type serviceMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	cacheHits  *prometheus.CounterVec
	cacheMiss  *prometheus.CounterVec
	cacheErrs  prometheus.Counter
	inconsist  *prometheus.CounterVec
}

func newServiceMetrics(registry *metric.MetricsRegistry) *serviceMetrics {
	// nil registry disables metrics
	if registry == nil {
		return nil
	}

	m := &serviceMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "reasoner",
			Name:      "operations_total",
			Help:      "Reasoning operations by operation and outcome",
		}, []string{"operation", "outcome"}),

		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "reasoner",
			Name:      "operation_duration_seconds",
			Help:      "Time spent per reasoning operation, cache hits included",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}, []string{"operation"}),

		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "reasoner",
			Name:      "cache_hits_total",
			Help:      "Reasoning results served from the result cache",
		}, []string{"kind"}),

		cacheMiss: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "reasoner",
			Name:      "cache_misses_total",
			Help:      "Reasoning calls that reached the backend",
		}, []string{"kind"}),

		cacheErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "reasoner",
			Name:      "cache_errors_total",
			Help:      "Result cache failures treated as misses",
		}),

		inconsist: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "reasoner",
			Name:      "inconsistencies_total",
			Help:      "Inconsistencies reported by the backend, by kind",
		}, []string{"kind"}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.operations,
		m.duration,
		m.cacheHits,
		m.cacheMiss,
		m.cacheErrs,
		m.inconsist,
	)

	return m
}

func (m *serviceMetrics) observe(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.duration.WithLabelValues(op).Observe(seconds)
}

func (m *serviceMetrics) cache(kind Kind, hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.WithLabelValues(string(kind)).Inc()
	} else {
		m.cacheMiss.WithLabelValues(string(kind)).Inc()
	}
}

func (m *serviceMetrics) cacheError() {
	if m == nil {
		return
	}
	m.cacheErrs.Inc()
}

func (m *serviceMetrics) inconsistencies(kinds []InconsistencyKind) {
	if m == nil {
		return
	}
	for _, k := range kinds {
		m.inconsist.WithLabelValues(string(k)).Inc()
	}
}
