// Package metrics exposes Prometheus collectors for queue activity.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nxqueue"

// Outcome labels for submissions.
const (
	OutcomeAccepted  = "accepted"
	OutcomeKnown     = "known"
	OutcomeContended = "contended"
	OutcomeRefused   = "refused"
	OutcomeFailed    = "failed"
)

// Result labels for processor runs.
const (
	ResultSuccess     = "success"
	ResultError       = "error"
	ResultBlacklisted = "blacklisted"
)

// Metrics holds the collectors of one daemon. The zero value and nil
// receivers are valid no-ops.
type Metrics struct {
	registry *prometheus.Registry

	submissions  *prometheus.CounterVec
	executions   *prometheus.CounterVec
	purged       *prometheus.CounterVec
	lockWait     *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates collectors registered on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "submissions_total",
				Help:      "Content submissions by queue and outcome.",
			},
			[]string{"queue", "outcome"},
		),
		executions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "executions_total",
				Help:      "Processor executions by queue and result.",
			},
			[]string{"queue", "result"},
		),
		purged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "queue",
				Name:      "purged_items_total",
				Help:      "Blacklisted items removed by the reaper.",
			},
			[]string{"queue"},
		),
		lockWait: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "lock",
				Name:      "wait_seconds",
				Help:      "Time spent acquiring content locks.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"queue"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
			},
			[]string{"method", "route"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.submissions,
		m.executions,
		m.purged,
		m.lockWait,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordSubmission counts one submission outcome.
func (m *Metrics) RecordSubmission(queue, outcome string) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.WithLabelValues(queue, outcome).Inc()
}

// RecordExecution counts one processor run.
func (m *Metrics) RecordExecution(queue, result string) {
	if m == nil || m.executions == nil {
		return
	}
	m.executions.WithLabelValues(queue, result).Inc()
}

// RecordPurge adds removed items for a queue.
func (m *Metrics) RecordPurge(queue string, removed int64) {
	if m == nil || m.purged == nil || removed <= 0 {
		return
	}
	m.purged.WithLabelValues(queue).Add(float64(removed))
}

// ObserveLockWait records how long acquiring a content lock took.
func (m *Metrics) ObserveLockWait(queue string, d time.Duration) {
	if m == nil || m.lockWait == nil {
		return
	}
	m.lockWait.WithLabelValues(queue).Observe(d.Seconds())
}

// ObserveHTTP records a handled HTTP request.
func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
