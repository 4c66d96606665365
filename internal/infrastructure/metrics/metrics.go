package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	// OAuthOutcomeCounter counts login flow steps by outcome
	OAuthOutcomeCounter *prometheus.CounterVec
	// WebhookCounter counts webhook deliveries by topic and outcome
	WebhookCounter *prometheus.CounterVec

	RequestCounter           *prometheus.CounterVec
	RequestDurationHistogram *prometheus.HistogramVec
}

// New registers all collectors under namespace on a dedicated registry
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OAuthOutcomeCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oauth_outcome_total",
				Help:      "Total number of OAuth flow steps by outcome",
			},
			[]string{"step", "outcome"},
		),
		WebhookCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_total",
				Help:      "Total number of webhook deliveries by topic and outcome",
			},
			[]string{"topic", "outcome"},
		),
		RequestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDurationHistogram: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

// RecordOAuth increments the outcome counter of a login flow step
func (m *Metrics) RecordOAuth(step, outcome string) {
	m.OAuthOutcomeCounter.WithLabelValues(step, outcome).Inc()
}

// RecordWebhook increments the webhook counter
func (m *Metrics) RecordWebhook(topic, outcome string) {
	m.WebhookCounter.WithLabelValues(topic, outcome).Inc()
}

// Middleware records request count and duration, labelled by chi route pattern
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		statusStr := strconv.Itoa(status)

		m.RequestCounter.WithLabelValues(r.Method, path, statusStr).Inc()
		m.RequestDurationHistogram.WithLabelValues(r.Method, path, statusStr).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
