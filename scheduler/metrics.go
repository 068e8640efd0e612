package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/c360/semreason/metric"
	"github.com/c360/semreason/store"
)

type schedulerMetrics struct {
	changes   *prometheus.CounterVec
	passes    *prometheus.CounterVec
	duration  prometheus.Histogram
	pending   prometheus.Gauge
	inferred  prometheus.Counter
	conflicts prometheus.Counter
}

func newSchedulerMetrics(registry *metric.MetricsRegistry) *schedulerMetrics {
	if registry == nil {
		return nil
	}

	m := &schedulerMetrics{
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "changes_total",
			Help:      "Store changes received by the scheduler",
		}, []string{"operation"}),

		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "passes_total",
			Help:      "Reasoning passes by trigger and outcome",
		}, []string{"trigger", "outcome"}),

		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of reasoning passes",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120, 600},
		}),

		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "pending_changes",
			Help:      "Changes buffered for the next pass",
		}),

		inferred: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "inferred_triples_total",
			Help:      "Inferred triples written back to the store",
		}),

		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "scheduler",
			Name:      "conflicts_total",
			Help:      "Passes that found the store inconsistent",
		}),
	}

	registry.PrometheusRegistry().MustRegister(
		m.changes,
		m.passes,
		m.duration,
		m.pending,
		m.inferred,
		m.conflicts,
	)

	return m
}

func (m *schedulerMetrics) change(op store.Operation, pending int) {
	if m == nil {
		return
	}
	m.changes.WithLabelValues(string(op)).Inc()
	m.pending.Set(float64(pending))
}

func (m *schedulerMetrics) setPending(n int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(n))
}

func (m *schedulerMetrics) pass(r PassReport) {
	if m == nil {
		return
	}
	m.passes.WithLabelValues(string(r.Trigger), string(r.Outcome)).Inc()
	m.duration.Observe(r.Duration.Seconds())
	if r.Outcome == OutcomeMerged {
		m.inferred.Add(float64(r.Inferred))
	}
	if r.Outcome == OutcomeInconsistent {
		m.conflicts.Inc()
	}
}
