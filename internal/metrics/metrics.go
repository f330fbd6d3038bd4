package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns its registry so several instances (one per test server) can
// coexist. All methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	logins   *prometheus.CounterVec
	uploads  *prometheus.CounterVec
	streamed prometheus.Counter
	sessions prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursehub",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "coursehub",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursehub",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "coursehub",
			Name:      "uploads_total",
			Help:      "Uploads by kind and result.",
		}, []string{"kind", "result"}),
		streamed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursehub",
			Name:      "stream_bytes_total",
			Help:      "Bytes sent by the video stream endpoint.",
		}),
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "coursehub",
			Name:      "expired_sessions_swept_total",
			Help:      "Expired sessions removed by the cleanup job.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.latency,
		m.logins,
		m.uploads,
		m.streamed,
		m.sessions,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) Login(success bool) {
	if m == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	m.logins.WithLabelValues(result).Inc()
}

func (m *Metrics) Upload(kind, result string) {
	if m == nil {
		return
	}
	m.uploads.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Streamed(n int) {
	if m == nil {
		return
	}
	m.streamed.Add(float64(n))
}

func (m *Metrics) SessionsSwept(n int64) {
	if m == nil {
		return
	}
	m.sessions.Add(float64(n))
}
