package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry        *prometheus.Registry
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	notifications   *prometheus.CounterVec
	ssoAttempts     *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
}

// NewMetrics registers collectors on a dedicated registry.
func NewMetrics(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Error responses by route and error code.",
		}, []string{"route", "method", "code"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_notifications_total",
			Help:      "Outbound chat notifications by platform and outcome.",
		}, []string{"platform", "outcome"}),
		ssoAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sso_attempts_total",
			Help:      "Upstream identity provider attempts by outcome.",
		}, []string{"outcome"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_status_changes_total",
			Help:      "Applied ticket status transitions by target status.",
		}, []string{"status"}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.requests,
		m.requestDuration,
		m.errors,
		m.notifications,
		m.ssoAttempts,
		m.statusChanges,
	)
	return m
}

// Handler exposes the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordNotification counts a chat delivery attempt.
func (m *Metrics) RecordNotification(platform, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(platform, outcome).Inc()
}

// RecordSSOAttempt counts one upstream identity attempt.
func (m *Metrics) RecordSSOAttempt(outcome string) {
	if m == nil {
		return
	}
	m.ssoAttempts.WithLabelValues(outcome).Inc()
}

// RecordStatusChange counts an applied status transition.
func (m *Metrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}
