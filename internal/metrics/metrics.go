// Package metrics exposes Prometheus counters for resolve runs, the catalog
// circuit breaker and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/cityobj/internal/pipeline"
	"github.com/sells-group/cityobj/internal/resilience"
)

const namespace = "cityobj"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	RunsTotal        *prometheus.CounterVec
	RunDuration      prometheus.Histogram
	RowsTotal        prometheus.Counter
	CandidatesTotal  prometheus.Counter
	UnresolvedTotal  prometheus.Counter
	ResolvedTotal    prometheus.Counter
	CatalogEntries   prometheus.Gauge
	BreakerState     prometheus.Gauge
	HTTPRequests     *prometheus.CounterVec
	HTTPDurationSecs *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Resolve runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a resolve run, catalog build included.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}),
		RowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_total",
			Help:      "Input rows processed.",
		}),
		CandidatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidates_total",
			Help:      "Candidate object names after normalization.",
		}),
		UnresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_candidates_total",
			Help:      "Candidates with no catalog match.",
		}),
		ResolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolved_rows_total",
			Help:      "Output rows carrying a geometry.",
		}),
		CatalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_entries",
			Help:      "Size of the catalog used by the last successful run.",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_breaker_state",
			Help:      "Catalog provider circuit state (0 closed, 1 open, 2 half-open).",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		HTTPDurationSecs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	reg.MustRegister(
		m.RunsTotal,
		m.RunDuration,
		m.RowsTotal,
		m.CandidatesTotal,
		m.UnresolvedTotal,
		m.ResolvedTotal,
		m.CatalogEntries,
		m.BreakerState,
		m.HTTPRequests,
		m.HTTPDurationSecs,
	)
	return m
}

// ObserveRun implements pipeline.Observer.
func (m *Metrics) ObserveRun(s pipeline.Summary, elapsed time.Duration, err error) {
	m.RunDuration.Observe(elapsed.Seconds())
	if err != nil {
		m.RunsTotal.WithLabelValues("error").Inc()
		return
	}
	m.RunsTotal.WithLabelValues("ok").Inc()
	m.RowsTotal.Add(float64(s.Rows))
	m.CandidatesTotal.Add(float64(s.Candidates))
	m.UnresolvedTotal.Add(float64(s.Unresolved))
	m.ResolvedTotal.Add(float64(s.Resolved))
	m.CatalogEntries.Set(float64(s.CatalogSize))
}

// SetBreakerState records the catalog circuit state.
func (m *Metrics) SetBreakerState(s resilience.State) {
	m.BreakerState.Set(float64(s))
}

// Middleware counts requests by chi route pattern. Unmatched paths are
// reported as "unmatched" to keep label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
		m.HTTPDurationSecs.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
