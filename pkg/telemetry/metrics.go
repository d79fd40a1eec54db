package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. Each Metrics owns its registry so
// tests can construct independent instances.
type Metrics struct {
	registry *prometheus.Registry

	nodeDuration *prometheus.HistogramVec
	nodeFailures *prometheus.CounterVec
	runs         *prometheus.CounterVec
	inflight     prometheus.Gauge
}

// NewMetrics registers the workflow collectors plus the Go runtime and
// process collectors on a fresh registry.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		nodeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "node_duration_seconds",
			Help:      "Duration of workflow node executions.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"node"}),
		nodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "node_failures_total",
			Help:      "Workflow node executions that returned an error.",
		}, []string{"node"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "runs_total",
			Help:      "Workflow executions by terminal status.",
		}, []string{"status"}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "inflight_runs",
			Help:      "Workflow executions currently running.",
		}),
	}

	reg.MustRegister(
		m.nodeDuration,
		m.nodeFailures,
		m.runs,
		m.inflight,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveNode records one node execution.
func (m *Metrics) ObserveNode(node string, elapsed time.Duration, failed bool) {
	m.nodeDuration.WithLabelValues(node).Observe(elapsed.Seconds())
	if failed {
		m.nodeFailures.WithLabelValues(node).Inc()
	}
}

// RunStarted increments the in-flight gauge.
func (m *Metrics) RunStarted() {
	m.inflight.Inc()
}

// RunFinished decrements the in-flight gauge and counts the terminal status.
func (m *Metrics) RunFinished(status string) {
	m.inflight.Dec()
	m.runs.WithLabelValues(status).Inc()
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
