package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler returns the Prometheus scrape handler for the registry. A nil
// registry yields a handler that answers 404.
func Handler(registry *MetricsRegistry) http.Handler {
	if registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(
		registry.PrometheusRegistry(),
		promhttp.HandlerOpts{
			EnableOpenMetrics: true,
		},
	)
}
