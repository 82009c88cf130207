package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics records authorization and transport counters on its own registry.
// A disabled Metrics accepts every call and records nothing.
type Metrics struct {
	enabled  bool
	registry *prometheus.Registry

	authAdmitted    *prometheus.CounterVec
	authDenied      *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New(enabled bool) *Metrics {
	if !enabled {
		return &Metrics{}
	}
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)
	return &Metrics{
		enabled:  true,
		registry: registry,
		authAdmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "auth_admitted_total",
			Help:      "Requests admitted by the authorization pipeline.",
		}, []string{"policy"}),
		authDenied: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "auth_denied_total",
			Help:      "Requests refused by the authorization pipeline.",
		}, []string{"stage", "reason"}),
		rateLimited: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "warehouse",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by a rate limit policy.",
		}, []string{"policy"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "warehouse",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) Handler() http.Handler {
	if !m.Enabled() {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) AuthAdmitted(policy string) {
	if !m.Enabled() {
		return
	}
	m.authAdmitted.WithLabelValues(policy).Inc()
}

func (m *Metrics) AuthDenied(stage, reason string) {
	if !m.Enabled() {
		return
	}
	m.authDenied.WithLabelValues(stage, reason).Inc()
}

func (m *Metrics) RateLimited(policy string) {
	if !m.Enabled() {
		return
	}
	m.rateLimited.WithLabelValues(policy).Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if !m.Enabled() {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
