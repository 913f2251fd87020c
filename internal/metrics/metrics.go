// Package metrics exposes Prometheus metrics for batch generation and the
// HTTP surface. Task metrics are driven by registry events.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/scribe-api/internal/events"
	"github.com/phrazzld/scribe-api/internal/task"
)

const namespace = "scribe"

// Metrics owns a registry and the collectors registered on it.
type Metrics struct {
	registry *prometheus.Registry

	TasksCreatedTotal  prometheus.Counter
	TasksFinishedTotal *prometheus.CounterVec
	TasksInFlight      *prometheus.GaugeVec
	GenerationSeconds  *prometheus.HistogramVec
	RateLimitHitsTotal *prometheus.CounterVec
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
	BrandLookupsTotal  *prometheus.CounterVec
	BlogExportsTotal   prometheus.Counter

	DomainAnalysesTotal *prometheus.CounterVec
}

var _ events.EventHandler = (*Metrics)(nil)

// New creates Metrics on a fresh registry that also carries the Go runtime
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		TasksCreatedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_created_total",
			Help:      "Total number of generation tasks queued.",
		}),
		TasksFinishedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Total number of generation tasks that reached a terminal status.",
		}, []string{"status"}),
		TasksInFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tasks_in_flight",
			Help:      "Tracked tasks that are queued or generating.",
		}, []string{"status"}),
		GenerationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Time from a task starting generation to its terminal status.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 90, 120, 180, 300},
		}, []string{"status"}),
		RateLimitHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter.",
		}, []string{"scope"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, labeled by route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BrandLookupsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "brand_lookups_total",
			Help:      "Brand ad lookups, labeled by outcome.",
		}, []string{"outcome"}),
		BlogExportsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blog_exports_total",
			Help:      "Word documents exported.",
		}),
		DomainAnalysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_analyses_total",
			Help:      "Domains analyzed for SEO metrics, labeled by status.",
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.TasksCreatedTotal,
		m.TasksFinishedTotal,
		m.TasksInFlight,
		m.GenerationSeconds,
		m.RateLimitHitsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestSeconds,
		m.BrandLookupsTotal,
		m.BlogExportsTotal,
		m.DomainAnalysesTotal,
	)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HandleEvent updates task metrics from a registry event.
func (m *Metrics) HandleEvent(_ context.Context, event *events.TaskEvent) error {
	switch event.Type {
	case events.TaskInserted:
		m.TasksCreatedTotal.Inc()
		m.TasksInFlight.WithLabelValues(event.Status).Inc()
	case events.TaskUpdated:
		if isActive(event.PreviousStatus) {
			m.TasksInFlight.WithLabelValues(event.PreviousStatus).Dec()
		}
		if isActive(event.Status) {
			m.TasksInFlight.WithLabelValues(event.Status).Inc()
			return nil
		}
		m.TasksFinishedTotal.WithLabelValues(event.Status).Inc()
		if event.Duration > 0 {
			m.GenerationSeconds.WithLabelValues(event.Status).Observe(event.Duration.Seconds())
		}
	case events.TaskRemoved:
		if isActive(event.Status) {
			m.TasksInFlight.WithLabelValues(event.Status).Dec()
		}
	}
	return nil
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPRequestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func isActive(status string) bool {
	s := task.TaskStatus(status)
	return s.IsValid() && !s.IsTerminal()
}
