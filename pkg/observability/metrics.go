package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusMetrics is a MetricsClient backed by a prometheus registry.
// All collectors are created lazily and keyed by metric name so callers
// don't pre-declare anything.
type PrometheusMetrics struct {
	namespace  string
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	mu         sync.Mutex
}

// NewPrometheusMetrics creates a metrics client registering into its own
// prometheus registry. Use Registry() to expose it.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		namespace:  namespace,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the underlying prometheus registry
func (m *PrometheusMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncrementCounter increments the named counter by one
func (m *PrometheusMetrics) IncrementCounter(name string, labels map[string]string) {
	m.mu.Lock()
	counter, exists := m.counters[name]
	if !exists {
		counter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: m.namespace,
			Name:      name,
		}, labelKeys(labels))
		m.registry.MustRegister(counter)
		m.counters[name] = counter
	}
	m.mu.Unlock()

	counter.With(prometheus.Labels(labels)).Inc()
}

// RecordLatency records an operation duration in seconds
func (m *PrometheusMetrics) RecordLatency(operation string, duration time.Duration) {
	const name = "operation_duration_seconds"

	m.mu.Lock()
	hist, exists := m.histograms[name]
	if !exists {
		hist = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: m.namespace,
			Name:      name,
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})
		m.registry.MustRegister(hist)
		m.histograms[name] = hist
	}
	m.mu.Unlock()

	hist.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordGauge sets the named gauge value
func (m *PrometheusMetrics) RecordGauge(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	gauge, exists := m.gauges[name]
	if !exists {
		gauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: m.namespace,
			Name:      name,
		}, labelKeys(labels))
		m.registry.MustRegister(gauge)
		m.gauges[name] = gauge
	}
	m.mu.Unlock()

	gauge.With(prometheus.Labels(labels)).Set(value)
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	return keys
}

// NoopMetrics is a MetricsClient that discards everything
type NoopMetrics struct{}

// NewNoopMetrics creates a new NoopMetrics
func NewNoopMetrics() MetricsClient { return &NoopMetrics{} }

func (n *NoopMetrics) IncrementCounter(name string, labels map[string]string)          {}
func (n *NoopMetrics) RecordLatency(operation string, duration time.Duration)          {}
func (n *NoopMetrics) RecordGauge(name string, value float64, labels map[string]string) {}
