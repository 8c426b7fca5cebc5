// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopByDefault(t *testing.T) {
	var m Metrics = noopMetrics{}
	assert.NotPanics(t, func() {
		m.Counter("c").Add(1)
		m.CounterVec("cv", []string{"a"}).AddWithLabel(1, map[string]string{"a": "b"})
		m.Gauge("g").Set(1)
		m.Histogram("h", nil).Observe(1)
		m.HistogramVec("hv", []string{"a"}, nil).ObserveWithLabels(1, map[string]string{"a": "b"})
	})
	assert.Nil(t, m.Handler())
}

func scrape(t *testing.T, h http.Handler) map[string]*dto.MetricFamily {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var parser expfmt.TextParser
	families, err := parser.TextToMetricFamilies(rec.Body)
	require.NoError(t, err)
	return families
}

func TestPrometheusMetrics(t *testing.T) {
	lazy := LazyLoadCounter("lazy_count")
	InitializePrometheusMetrics()
	InitializePrometheusMetrics()

	Counter("calls_count").Add(2)
	Counter("calls_count").Add(3)
	lazy().Add(1)

	vec := CounterVec("reverted_count", []string{"method"})
	vec.AddWithLabel(1, map[string]string{"method": "stake"})
	vec.AddWithLabel(1, map[string]string{"method": "stake"})
	vec.AddWithLabel(1, map[string]string{"method": "claim"})

	Gauge("head_number").Set(42)
	HistogramVec("duration_ms", []string{"method"}, BucketExecution).
		ObserveWithLabels(3, map[string]string{"method": "stake"})

	families := scrape(t, HTTPHandler())

	require.Contains(t, families, "emy_calls_count")
	assert.Equal(t, float64(5), families["emy_calls_count"].GetMetric()[0].GetCounter().GetValue())

	require.Contains(t, families, "emy_lazy_count")
	assert.Equal(t, float64(1), families["emy_lazy_count"].GetMetric()[0].GetCounter().GetValue())

	require.Contains(t, families, "emy_reverted_count")
	byMethod := map[string]float64{}
	for _, m := range families["emy_reverted_count"].GetMetric() {
		byMethod[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"stake": 2, "claim": 1}, byMethod)

	require.Contains(t, families, "emy_head_number")
	assert.Equal(t, float64(42), families["emy_head_number"].GetMetric()[0].GetGauge().GetValue())

	require.Contains(t, families, "emy_duration_ms")
	assert.Equal(t, uint64(1), families["emy_duration_ms"].GetMetric()[0].GetHistogram().GetSampleCount())
}
