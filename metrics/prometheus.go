// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emylabs/emy/log"
)

const namespace = "emy"

var logger = log.WithContext("pkg", "metrics")

// InitializePrometheusMetrics switches the facade to Prometheus. Later calls are no-ops.
func InitializePrometheusMetrics() {
	mu.Lock()
	defer mu.Unlock()
	if _, ok := metrics.(*prometheusMetrics); !ok {
		metrics = newPrometheusMetrics()
	}
}

type prometheusMetrics struct {
	registry *prometheus.Registry
	lock     sync.Mutex
	meters   map[string]any
}

func newPrometheusMetrics() *prometheusMetrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
	)
	return &prometheusMetrics{
		registry: registry,
		meters:   make(map[string]any),
	}
}

// getOrCreate returns the meter registered as name, creating it with create on first use.
func getOrCreate[T any](o *prometheusMetrics, name string, create func() (prometheus.Collector, T)) T {
	o.lock.Lock()
	defer o.lock.Unlock()

	if m, ok := o.meters[name]; ok {
		if meter, ok := m.(T); ok {
			return meter
		}
		logger.Warn("metric registered with another type", "name", name)
	}
	collector, meter := create()
	if err := o.registry.Register(collector); err != nil {
		logger.Warn("failed to register metric", "name", name, "err", err)
	}
	o.meters[name] = meter
	return meter
}

func floatBuckets(buckets []int64) []float64 {
	if len(buckets) == 0 {
		return prometheus.DefBuckets
	}
	out := make([]float64, len(buckets))
	for i, b := range buckets {
		out[i] = float64(b)
	}
	return out
}

func (o *prometheusMetrics) Counter(name string) CountMeter {
	return getOrCreate(o, name, func() (prometheus.Collector, CountMeter) {
		c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: name})
		return c, &promCounter{c}
	})
}

func (o *prometheusMetrics) CounterVec(name string, labels []string) CountVecMeter {
	return getOrCreate(o, name, func() (prometheus.Collector, CountVecMeter) {
		c := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: namespace, Name: name}, labels)
		return c, &promCounterVec{c}
	})
}

func (o *prometheusMetrics) Gauge(name string) GaugeMeter {
	return getOrCreate(o, name, func() (prometheus.Collector, GaugeMeter) {
		g := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: namespace, Name: name})
		return g, &promGauge{g}
	})
}

func (o *prometheusMetrics) Histogram(name string, buckets []int64) HistogramMeter {
	return getOrCreate(o, name, func() (prometheus.Collector, HistogramMeter) {
		h := prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   floatBuckets(buckets),
		})
		return h, &promHistogram{h}
	})
}

func (o *prometheusMetrics) HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return getOrCreate(o, name, func() (prometheus.Collector, HistogramVecMeter) {
		h := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      name,
			Buckets:   floatBuckets(buckets),
		}, labels)
		return h, &promHistogramVec{h}
	})
}

func (o *prometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{})
}

type promCounter struct{ c prometheus.Counter }

func (m *promCounter) Add(i int64) { m.c.Add(float64(i)) }

type promCounterVec struct{ c *prometheus.CounterVec }

func (m *promCounterVec) AddWithLabel(i int64, labels map[string]string) {
	m.c.With(labels).Add(float64(i))
}

type promGauge struct{ g prometheus.Gauge }

func (m *promGauge) Add(i int64) { m.g.Add(float64(i)) }
func (m *promGauge) Set(i int64) { m.g.Set(float64(i)) }

type promHistogram struct{ h prometheus.Histogram }

func (m *promHistogram) Observe(i int64) { m.h.Observe(float64(i)) }

type promHistogramVec struct{ h *prometheus.HistogramVec }

func (m *promHistogramVec) ObserveWithLabels(i int64, labels map[string]string) {
	m.h.With(labels).Observe(float64(i))
}
