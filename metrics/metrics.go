// Copyright (c) 2025 The EMY developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package metrics is a process wide metrics facade. Meters are no-ops until
// InitializePrometheusMetrics is called.
package metrics

import (
	"net/http"
	"sync"
)

var (
	mu      sync.RWMutex
	metrics Metrics = noopMetrics{}
)

func current() Metrics {
	mu.RLock()
	defer mu.RUnlock()
	return metrics
}

// Metrics creates meters and serves them.
type Metrics interface {
	Counter(name string) CountMeter
	CounterVec(name string, labels []string) CountVecMeter
	Gauge(name string) GaugeMeter
	Histogram(name string, buckets []int64) HistogramMeter
	HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter
	Handler() http.Handler
}

// Standard histogram buckets, in milliseconds.
var (
	BucketExecution = []int64{0, 1, 2, 5, 10, 20, 50, 100, 250, 500, 1000}
	BucketHTTPReqs  = []int64{
		0, 1, 2, 5, 10, 20, 30, 50, 75, 100,
		150, 200, 300, 400, 500, 750, 1000,
		1500, 2000, 3000, 5000, 10000,
	}
)

type CountMeter interface {
	Add(int64)
}

type CountVecMeter interface {
	AddWithLabel(int64, map[string]string)
}

type GaugeMeter interface {
	Add(int64)
	Set(int64)
}

type HistogramMeter interface {
	Observe(int64)
}

type HistogramVecMeter interface {
	ObserveWithLabels(int64, map[string]string)
}

func Counter(name string) CountMeter { return current().Counter(name) }

func CounterVec(name string, labels []string) CountVecMeter {
	return current().CounterVec(name, labels)
}

func Gauge(name string) GaugeMeter { return current().Gauge(name) }

func Histogram(name string, buckets []int64) HistogramMeter {
	return current().Histogram(name, buckets)
}

func HistogramVec(name string, labels []string, buckets []int64) HistogramVecMeter {
	return current().HistogramVec(name, labels, buckets)
}

// HTTPHandler returns the handler exposing the meters, nil when disabled.
func HTTPHandler() http.Handler {
	return current().Handler()
}

// LazyLoad defers creating a meter to its first use, so package level
// meters pick up the implementation chosen at startup.
func LazyLoad[T any](f func() T) func() T {
	var (
		once   sync.Once
		result T
	)
	return func() T {
		once.Do(func() { result = f() })
		return result
	}
}

func LazyLoadCounter(name string) func() CountMeter {
	return LazyLoad(func() CountMeter { return Counter(name) })
}

func LazyLoadCounterVec(name string, labels []string) func() CountVecMeter {
	return LazyLoad(func() CountVecMeter { return CounterVec(name, labels) })
}

func LazyLoadGauge(name string) func() GaugeMeter {
	return LazyLoad(func() GaugeMeter { return Gauge(name) })
}

func LazyLoadHistogramVec(name string, labels []string, buckets []int64) func() HistogramVecMeter {
	return LazyLoad(func() HistogramVecMeter { return HistogramVec(name, labels, buckets) })
}

type noopMetrics struct{}

func (noopMetrics) Counter(string) CountMeter                                { return noopMeter{} }
func (noopMetrics) CounterVec(string, []string) CountVecMeter                { return noopMeter{} }
func (noopMetrics) Gauge(string) GaugeMeter                                  { return noopMeter{} }
func (noopMetrics) Histogram(string, []int64) HistogramMeter                 { return noopMeter{} }
func (noopMetrics) HistogramVec(string, []string, []int64) HistogramVecMeter { return noopMeter{} }
func (noopMetrics) Handler() http.Handler                                    { return nil }

type noopMeter struct{}

func (noopMeter) Add(int64)                                  {}
func (noopMeter) Set(int64)                                  {}
func (noopMeter) Observe(int64)                              {}
func (noopMeter) AddWithLabel(int64, map[string]string)      {}
func (noopMeter) ObserveWithLabels(int64, map[string]string) {}
