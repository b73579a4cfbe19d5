package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the document service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	plansTotal      *prometheus.CounterVec
	planDuration    *prometheus.HistogramVec
	planPages       *prometheus.HistogramVec
	planWarnings    *prometheus.CounterVec
}

// NewMetrics builds a private registry with HTTP and plan metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docplan_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docplan_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	plans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docplan_plans_total",
		Help: "Layout plans built by document kind and outcome.",
	}, []string{"kind", "outcome"})
	planDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docplan_plan_duration_seconds",
		Help:    "Time spent loading and planning one document.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"kind"})
	planPages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docplan_plan_pages",
		Help:    "Pages per successful layout plan.",
		Buckets: []float64{1, 2, 3, 5},
	}, []string{"kind"})
	planWarnings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docplan_plan_warnings_total",
		Help: "Warnings attached to layout plans.",
	}, []string{"kind"})
	registry.MustRegister(requests, duration, plans, planDuration, planPages, planWarnings)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		plansTotal:      plans,
		planDuration:    planDuration,
		planPages:       planPages,
		planWarnings:    planWarnings,
	}
}

// Handler returns the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records request count and latency per chi route pattern.
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

// ObservePlan records one document.Service Plan call.
func (m *Metrics) ObservePlan(kind string, pages, warnings int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.plansTotal.WithLabelValues(kind, outcome).Inc()
	m.planDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.planPages.WithLabelValues(kind).Observe(float64(pages))
	if warnings > 0 {
		m.planWarnings.WithLabelValues(kind).Add(float64(warnings))
	}
}

// Registerer exposes the registry for extra collectors.
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
