package metric

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/semreason/errors"
)

func gatheredNames(t *testing.T, r *MetricsRegistry) map[string]bool {
	t.Helper()
	families, err := r.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	return names
}

func TestMetricsRegistry_RegisterCollectors(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter", Help: "c"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "test_gauge", Help: "g"})
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "test_hist", Help: "h"}, []string{"kind"})

	require.NoError(t, registry.RegisterCounter("svc", "test_counter", counter))
	require.NoError(t, registry.RegisterGauge("svc", "test_gauge", gauge))
	require.NoError(t, registry.RegisterHistogramVec("svc", "test_hist", vec))

	counter.Inc()
	gauge.Set(3)
	vec.WithLabelValues("full_inference").Observe(0.2)

	names := gatheredNames(t, registry)
	assert.True(t, names["test_counter"])
	assert.True(t, names["test_gauge"])
	assert.True(t, names["test_hist"])
}

func TestMetricsRegistry_PreventDuplicateRegistration(t *testing.T) {
	registry := NewMetricsRegistry()

	first := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "c"})
	second := prometheus.NewCounter(prometheus.CounterOpts{Name: "dup_counter", Help: "c"})

	require.NoError(t, registry.RegisterCounter("svc", "dup", first))

	err := registry.RegisterCounter("svc", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	// Same prometheus name under another key is a prometheus conflict
	err = registry.RegisterCounter("other", "dup", second)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestMetricsRegistry_Unregister(t *testing.T) {
	registry := NewMetricsRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "gone_counter", Help: "c"})
	require.NoError(t, registry.RegisterCounter("svc", "gone", counter))

	assert.True(t, registry.Unregister("svc", "gone"))
	assert.False(t, registry.Unregister("svc", "gone"))

	// Can register again after removal
	require.NoError(t, registry.RegisterCounter("svc", "gone", counter))
}

func TestMetricsRegistry_ThreadSafety(t *testing.T) {
	registry := NewMetricsRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("concurrent_%d", i)
			c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: "c"})
			assert.NoError(t, registry.RegisterCounter("svc", name, c))
		}(i)
	}
	wg.Wait()

	names := gatheredNames(t, registry)
	for i := 0; i < 20; i++ {
		assert.True(t, names[fmt.Sprintf("concurrent_%d", i)])
	}
}

func TestCoreMetrics_RecordMethods(t *testing.T) {
	registry := NewMetricsRegistry()
	m := registry.CoreMetrics()

	m.RecordHealth("scheduler", true)
	m.RecordError("reasoner", "transient")
	m.RecordError("reasoner", "transient")
	m.RecordHTTPRequest("/api/reasoning/run", "200", 5*time.Millisecond)
	m.RecordNATSStatus(true)
	m.RecordNATSRTT(12 * time.Millisecond)
	m.RecordNATSReconnect()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ComponentHealth.WithLabelValues("scheduler")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ErrorsTotal.WithLabelValues("reasoner", "transient")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/reasoning/run", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSConnected))
	assert.Equal(t, 12.0, testutil.ToFloat64(m.NATSRTT))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.NATSReconnects))

	names := gatheredNames(t, registry)
	assert.True(t, names["semreason_errors_total"])
	assert.True(t, names["semreason_nats_connected"])
	assert.True(t, names["go_goroutines"])
}

func TestHandler_ServesRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	registry.CoreMetrics().RecordError("scheduler", "fatal")

	rec := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `semreason_errors_total{class="fatal",component="scheduler"} 1`)

	rec = httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
