// Package metrics exposes Prometheus collectors for the ledger and the HTTP
// surface.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"financeflow/internal/ledger"
)

const namespace = "financeflow"

type Metrics struct {
	registry *prometheus.Registry

	LedgerOps        *prometheus.CounterVec
	LedgerOpDuration *prometheus.HistogramVec
	Inconsistencies  *prometheus.CounterVec
	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
	CacheEvictions   prometheus.Counter
	EventsPublished  *prometheus.CounterVec
}

var _ ledger.Recorder = (*Metrics)(nil)

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		LedgerOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		LedgerOpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "operation_duration_seconds",
			Help:      "Latency of ledger operations including store round trips.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		Inconsistencies: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "inconsistencies_total",
			Help:      "Card balances left out of step with their transactions.",
		}, []string{"op"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		ActiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "active",
			Help:      "Ledger sessions held in memory.",
		}),
		CacheEvictions: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "expired_evictions_total",
			Help:      "Entries removed by the periodic cache sweep.",
		}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Ledger events handed to the broker by outcome.",
		}, []string{"type", "outcome"}),
	}
}

// ObserveOperation implements ledger.Recorder.
func (m *Metrics) ObserveOperation(op string, elapsed time.Duration, err error) {
	m.LedgerOps.WithLabelValues(op, outcome(err)).Inc()
	m.LedgerOpDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Inconsistency implements ledger.Recorder.
func (m *Metrics) Inconsistency(op string) {
	m.Inconsistencies.WithLabelValues(op).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request count and latency labelled by the chi route
// pattern, so path parameters do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// Publisher wraps a ledger.Publisher and counts outcomes.
func (m *Metrics) Publisher(next ledger.Publisher) ledger.Publisher {
	return countingPublisher{next: next, m: m}
}

type countingPublisher struct {
	next ledger.Publisher
	m    *Metrics
}

func (p countingPublisher) Publish(ctx context.Context, e ledger.Event) error {
	err := p.next.Publish(ctx, e)
	p.m.EventsPublished.WithLabelValues(string(e.Type), outcome(err)).Inc()
	return err
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
