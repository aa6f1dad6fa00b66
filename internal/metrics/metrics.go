// Package metrics holds the Prometheus collectors exposed on PROMETHEUS_PORT.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the application collectors on their own registry
type Metrics struct {
	registry      *prometheus.Registry
	requests      *prometheus.CounterVec
	duration      *prometheus.HistogramVec
	confirmations *prometheus.CounterVec
	announcements *prometheus.CounterVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rollcall",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "confirmations_total",
			Help:      "Candidate confirmation attempts by outcome.",
		}, []string{"outcome"}),
		announcements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollcall",
			Name:      "telegram_messages_total",
			Help:      "Telegram messages sent, by result.",
		}, []string{"result"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.duration,
		m.confirmations,
		m.announcements,
	)
	return m
}

// ObserveRequest records one served HTTP request
func (m *Metrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ConfirmationAttempt counts a confirmation outcome
func (m *Metrics) ConfirmationAttempt(outcome string) {
	m.confirmations.WithLabelValues(outcome).Inc()
}

// MessageSent counts a Telegram send; ok is false when the API call failed
func (m *Metrics) MessageSent(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.announcements.WithLabelValues(result).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
