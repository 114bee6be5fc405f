// Package metrics exposes Prometheus instruments for lifecycle operations
// and the audit trail.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "assetnexus"

// Operation results.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds every instrument on its own registry so tests and multiple
// servers in one process do not collide.
type Metrics struct {
	Registry *prometheus.Registry

	operations    *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	trailFailures prometheus.Counter
	httpRequests  *prometheus.CounterVec
}

// New creates and registers all instruments.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Lifecycle operations by name and result.",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Lifecycle operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		trailFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trail_record_failures_total",
			Help:      "Audit trail entries that could not be recorded.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status code.",
		}, []string{"method", "code"}),
	}

	m.Registry.MustRegister(
		m.operations,
		m.duration,
		m.trailFailures,
		m.httpRequests,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Observe records the outcome and latency of one operation. A nil receiver
// is a no-op.
func (m *Metrics) Observe(operation string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.operations.WithLabelValues(operation, result).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// TrailFailure counts one audit entry that was lost.
func (m *Metrics) TrailFailure() {
	if m == nil {
		return
	}
	m.trailFailures.Inc()
}

// HTTPRequest counts one served request.
func (m *Metrics) HTTPRequest(method string, code int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(code)).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
