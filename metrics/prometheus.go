// Package metrics exposes score queue and HTTP instrumentation through Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gamekit/core"
)

// Metrics owns a dedicated registry so several servers can coexist in one process
// (and in tests).
type Metrics struct {
	registry *prometheus.Registry

	queueDepth    prometheus.Gauge
	inFlight      prometheus.Gauge
	queries       *prometheus.CounterVec
	queryDuration *prometheus.HistogramVec
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New builds the collectors under namespace (default "gamekit").
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "gamekit"
	}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "score_queue",
			Name:      "depth",
			Help:      "Score queries waiting behind the in-flight request.",
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "score_queue",
			Name:      "in_flight",
			Help:      "Score queries currently issued to the backend (0 or 1).",
		}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "score_queue",
			Name:      "requests_total",
			Help:      "Completed score queries by mode and outcome.",
		}, []string{"mode", "outcome"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "score_queue",
			Name:      "request_duration_seconds",
			Help:      "Backend latency of score queries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"mode"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "method", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.queueDepth, m.inFlight, m.queries, m.queryDuration, m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RequestQueued(depth int) {
	m.queueDepth.Set(float64(depth))
}

func (m *Metrics) RequestStarted(_ core.ScoreQuery, depth int) {
	m.queueDepth.Set(float64(depth))
	m.inFlight.Set(1)
}

func (m *Metrics) RequestCompleted(q core.ScoreQuery, elapsed time.Duration, err error) {
	m.inFlight.Set(0)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	mode := q.Mode.String()
	m.queries.WithLabelValues(mode, outcome).Inc()
	if elapsed > 0 {
		m.queryDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
