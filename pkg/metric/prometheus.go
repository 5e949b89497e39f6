package metric

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type (
	prometheusMetrics struct {
		vectors *vectors
		labels  Labels
	}

	// vectors fixes the label names of a key on its first use, later calls with other label names are dropped.
	vectors struct {
		registerer prometheus.Registerer

		mu         sync.Mutex
		counters   map[string]*prometheus.CounterVec
		histograms map[string]*prometheus.HistogramVec
	}
)

func NewPrometheusMetrics(registerer prometheus.Registerer) Metrics {
	return prometheusMetrics{
		vectors: &vectors{
			registerer: registerer,
			counters:   make(map[string]*prometheus.CounterVec),
			histograms: make(map[string]*prometheus.HistogramVec),
		},
	}
}

func (m prometheusMetrics) With(labels Labels) Metrics {
	merged := make(Labels, len(m.labels)+len(labels))
	for name, value := range m.labels {
		merged[name] = value
	}
	for name, value := range labels {
		merged[name] = value
	}

	return prometheusMetrics{vectors: m.vectors, labels: merged}
}

func (m prometheusMetrics) Increment(key string) {
	counter, err := m.vectors.counter(key, m.labels).GetMetricWith(prometheus.Labels(m.labels))
	if err != nil {
		return
	}

	counter.Inc()
}

func (m prometheusMetrics) Duration(key string, duration time.Duration) {
	observer, err := m.vectors.histogram(key, m.labels).GetMetricWith(prometheus.Labels(m.labels))
	if err != nil {
		return
	}

	observer.Observe(duration.Seconds())
}

func (v *vectors) counter(key string, labels Labels) *prometheus.CounterVec {
	v.mu.Lock()
	defer v.mu.Unlock()

	vec, ok := v.counters[key]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: key, Help: key}, labelNames(labels))
		v.counters[key] = register(v.registerer, vec)
	}

	return v.counters[key]
}

func (v *vectors) histogram(key string, labels Labels) *prometheus.HistogramVec {
	v.mu.Lock()
	defer v.mu.Unlock()

	vec, ok := v.histograms[key]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: key, Help: key, Buckets: prometheus.DefBuckets}, labelNames(labels))
		v.histograms[key] = register(v.registerer, vec)
	}

	return v.histograms[key]
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	err := registerer.Register(collector)
	var alreadyRegistered prometheus.AlreadyRegisteredError
	if err != nil && errors.As(err, &alreadyRegistered) {
		if existing, ok := alreadyRegistered.ExistingCollector.(T); ok {
			return existing
		}
	}

	return collector
}

func labelNames(labels Labels) []string {
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}
