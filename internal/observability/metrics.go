package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the governance service.
type Metrics struct {
	registry           *prometheus.Registry
	handler            http.Handler
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	decisionsTotal     *prometheus.CounterVec
	violations         *prometheus.GaugeVec
	auditRunsTotal     *prometheus.CounterVec
	lastAuditTimestamp prometheus.Gauge
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "govern_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "govern_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "govern_authz_decisions_total",
		Help: "Authorization decisions by check, outcome and reason.",
	}, []string{"check", "outcome", "reason"})
	violations := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "govern_governance_violations",
		Help: "Violations found by the latest governance audit, by kind.",
	}, []string{"kind"})
	auditRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "govern_governance_audits_total",
		Help: "Governance audits run, by result.",
	}, []string{"result"})
	lastAudit := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "govern_governance_last_audit_timestamp_seconds",
		Help: "Unix time of the latest governance audit.",
	})
	registry.MustRegister(requests, duration, decisions, violations, auditRuns, lastAudit)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		decisionsTotal:     decisions,
		violations:         violations,
		auditRunsTotal:     auditRuns,
		lastAuditTimestamp: lastAudit,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveDecision counts an authorization decision.
func (m *Metrics) ObserveDecision(check string, allowed bool, reason string) {
	if m == nil {
		return
	}
	outcome := "deny"
	if allowed {
		outcome = "allow"
	}
	m.decisionsTotal.WithLabelValues(check, outcome, reason).Inc()
}

// ObserveAudit publishes the violation counts of a governance audit. Kinds
// absent from counts are reset to zero.
func (m *Metrics) ObserveAudit(kinds []string, counts map[string]int, at time.Time) {
	if m == nil {
		return
	}
	total := 0
	for _, kind := range kinds {
		m.violations.WithLabelValues(kind).Set(float64(counts[kind]))
		total += counts[kind]
	}
	result := "clean"
	if total > 0 {
		result = "violations"
	}
	m.auditRunsTotal.WithLabelValues(result).Inc()
	m.lastAuditTimestamp.Set(float64(at.Unix()))
}

// Registerer exposes the registry for custom metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
