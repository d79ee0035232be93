package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requestCount    *prometheus.CounterVec
	requestLatency  *prometheus.HistogramVec
	errorCount      *prometheus.CounterVec
	guardDecisions  *prometheus.CounterVec
	dispatchResults *prometheus.CounterVec
	moderation      *prometheus.CounterVec
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyshare_requests_total",
				Help: "Total API requests received",
			},
			[]string{"route", "method", "status"},
		),
		requestLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "studyshare_request_duration_seconds",
				Help:    "Histogram of request latencies",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		errorCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyshare_errors_total",
				Help: "Errors rendered to clients by code",
			},
			[]string{"route", "method", "code"},
		),
		guardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyshare_guard_decisions_total",
				Help: "Access guard decisions on administrative views",
			},
			[]string{"decision"},
		),
		dispatchResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyshare_welcome_mail_total",
				Help: "Welcome mail outcomes",
			},
			[]string{"status", "reason"},
		),
		moderation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studyshare_moderation_actions_total",
				Help: "Moderation operations by kind",
			},
			[]string{"action"},
		),
	}
	m.registry.MustRegister(
		m.requestCount,
		m.requestLatency,
		m.errorCount,
		m.guardDecisions,
		m.dispatchResults,
		m.moderation,
	)
	return m
}

// Registry exposes the collectors for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.requestLatency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(route, method, code).Inc()
}

// RecordGuardDecision counts allow/deny outcomes.
func (m *Metrics) RecordGuardDecision(allowed bool) {
	if m == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	m.guardDecisions.WithLabelValues(decision).Inc()
}

// RecordDispatch counts welcome mail outcomes.
func (m *Metrics) RecordDispatch(status, reason string) {
	if m == nil {
		return
	}
	m.dispatchResults.WithLabelValues(status, reason).Inc()
}

// RecordModeration counts moderation operations.
func (m *Metrics) RecordModeration(action string) {
	if m == nil {
		return
	}
	m.moderation.WithLabelValues(action).Inc()
}
