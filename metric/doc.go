// Package metric provides the Prometheus registry shared by all components.
//
// Components never register with the global Prometheus registry. They
// receive a *MetricsRegistry and register their collectors through it;
// duplicate registrations come back as invalid-class errors instead of
// panics. A nil registry means metrics are disabled for that component.
//
//	registry := metric.NewMetricsRegistry()
//	svc := reasoner.NewService(backend, reasoner.WithMetrics(registry))
//	mux.Handle("/metrics", metric.Handler(registry))
package metric
