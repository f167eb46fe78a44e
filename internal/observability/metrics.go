package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the prometheus collectors of the service.
type Metrics struct {
	Registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	taskEvents      *prometheus.CounterVec
	reminders       *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		Registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Requests answered with an error envelope",
		}, []string{"method", "path", "code"}),
		taskEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "task_events_total",
			Help: "Task lifecycle events by type",
		}, []string{"type"}),
		reminders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reminders_total",
			Help: "Reminder dispatch attempts by kind and outcome",
		}, []string{"kind", "outcome"}),
	}
	registry.MustRegister(m.requests, m.requestDuration, m.errors, m.taskEvents, m.reminders)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, path, code).Inc()
}

// RecordTaskEvent counts a task lifecycle event.
func (m *Metrics) RecordTaskEvent(eventType string) {
	if m == nil {
		return
	}
	m.taskEvents.WithLabelValues(eventType).Inc()
}

// RecordReminder counts one dispatch attempt.
func (m *Metrics) RecordReminder(kind string, delivered bool) {
	if m == nil {
		return
	}
	outcome := "sent"
	if !delivered {
		outcome = "failed"
	}
	m.reminders.WithLabelValues(kind, outcome).Inc()
}
