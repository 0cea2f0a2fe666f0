// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "questboard"

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	ActiveSessions  prometheus.Gauge
	ChatMessages    *prometheus.CounterVec
	TaskTransitions *prometheus.CounterVec
	Events          *prometheus.CounterVec
}

// New registers the instruments on a fresh registry together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "chat_active_sessions",
			Help:      "Number of connected conversation sessions.",
		}),
		ChatMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chat_messages_total",
			Help:      "Chat messages by source (ws, http) and outcome.",
		}, []string{"source", "outcome"}),
		TaskTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "task_transitions_total",
			Help:      "Successful task state transitions by target status.",
		}, []string{"status"}),
		Events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "events_total",
			Help:      "Lifecycle events by topic and delivery result.",
		}, []string{"topic", "result"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(route, method, code string, d time.Duration) {
	m.HTTPRequests.WithLabelValues(route, method, code).Inc()
	m.HTTPDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

// SessionOpened and SessionClosed track the active sessions gauge.
func (m *Metrics) SessionOpened() { m.ActiveSessions.Inc() }

// SessionClosed decrements the active sessions gauge.
func (m *Metrics) SessionClosed() { m.ActiveSessions.Dec() }

// MessageHandled counts a chat message.
func (m *Metrics) MessageHandled(source, outcome string) {
	m.ChatMessages.WithLabelValues(source, outcome).Inc()
}

// TaskTransitioned counts a task reaching status.
func (m *Metrics) TaskTransitioned(status string) {
	m.TaskTransitions.WithLabelValues(status).Inc()
}

// EventPublished implements events.Observer.
func (m *Metrics) EventPublished(topic string) {
	m.Events.WithLabelValues(topic, "published").Inc()
}

// EventDropped implements events.Observer.
func (m *Metrics) EventDropped(topic string) {
	m.Events.WithLabelValues(topic, "dropped").Inc()
}

// EventFailed implements events.Observer.
func (m *Metrics) EventFailed(topic string) {
	m.Events.WithLabelValues(topic, "failed").Inc()
}
