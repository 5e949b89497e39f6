package metric_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klwxsrx/storefront-console/pkg/metric"
)

func TestPrometheusMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	metrics := metric.NewPrometheusMetrics(registry)

	metrics.With(metric.Labels{"result": "success"}).Increment("session_refresh_total")
	metrics.With(metric.Labels{"result": "success"}).Increment("session_refresh_total")
	metrics.With(metric.Labels{"result": "failure"}).Increment("session_refresh_total")
	metrics.With(metric.Labels{"unexpected": "label"}).Increment("session_refresh_total")
	metrics.With(metric.Labels{"method": "GET"}).Duration("http_client_request_duration_seconds", 20*time.Millisecond)

	families, err := registry.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, family := range families {
		byName[family.GetName()] = family
	}

	refresh := byName["session_refresh_total"]
	require.NotNil(t, refresh)
	values := map[string]float64{}
	for _, m := range refresh.GetMetric() {
		require.Len(t, m.GetLabel(), 1)
		values[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"success": 2, "failure": 1}, values)

	duration := byName["http_client_request_duration_seconds"]
	require.NotNil(t, duration)
	require.Len(t, duration.GetMetric(), 1)
	assert.Equal(t, uint64(1), duration.GetMetric()[0].GetHistogram().GetSampleCount())
}
