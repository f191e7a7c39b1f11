// Package metrics provides Prometheus instrumentation for the generation
// pipeline, the matching engine, and the admin HTTP surface.
//
// Standard metrics exposed automatically by prometheus/client_golang:
//   - go_goroutines, go_gc_duration_seconds, etc. (Go runtime)
//   - process_cpu_seconds_total, process_open_fds, etc. (process)
//
// Teamarr-specific metrics registered here:
//
//	teamarr_generation_in_progress        — gauge: 1 while a run is active
//	teamarr_generation_duration_seconds   — histogram: wall-clock per run
//	teamarr_streams_matched_total         — counter: matched streams by league
//	teamarr_streams_excluded_total        — counter: excluded streams by reason
//	teamarr_cache_hit_ratio               — gauge: rolling cache hit rate
//	teamarr_provider_request_duration_seconds — histogram: provider call latency
//	teamarr_http_requests_total           — counter: admin HTTP requests
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ── Gauges ────────────────────────────────────────────────────────────────────

// GenerationInProgress is 1 while a generation run is executing, else 0.
var GenerationInProgress = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "teamarr_generation_in_progress",
	Help: "1 while an EPG generation run is executing.",
})

// CacheHitRatio is the rolling match-cache hit rate of the most recent run.
var CacheHitRatio = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "teamarr_cache_hit_ratio",
	Help: "Match cache hit rate of the most recent generation run.",
})

// ── Counters ──────────────────────────────────────────────────────────────────

// StreamsMatched counts matched streams by league.
var StreamsMatched = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teamarr_streams_matched_total",
	Help: "Streams successfully matched to an event, by league.",
}, []string{"league"})

// StreamsExcluded counts excluded/failed streams by reason.
var StreamsExcluded = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teamarr_streams_excluded_total",
	Help: "Streams filtered or failed to match, by reason.",
}, []string{"reason"})

// SchedulerTicks counts scheduler loop iterations by task name.
var SchedulerTicks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teamarr_scheduler_ticks_total",
	Help: "Scheduler sub-task executions, by task.",
}, []string{"task"})

// HTTPRequests counts admin HTTP requests by method, path, and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "teamarr_http_requests_total",
	Help: "Total admin HTTP requests handled.",
}, []string{"method", "path", "status"})

// ── Histograms ────────────────────────────────────────────────────────────────

// GenerationDuration tracks wall-clock duration of full generation runs.
var GenerationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "teamarr_generation_duration_seconds",
	Help:    "Wall-clock duration of a full EPG generation run.",
	Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
})

// ProviderRequestDuration tracks upstream provider call latency by provider name.
var ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "teamarr_provider_request_duration_seconds",
	Help:    "Upstream sports data provider call latency.",
	Buckets: prometheus.DefBuckets,
}, []string{"provider"})

// HTTPDuration tracks admin HTTP request latency.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "teamarr_http_request_duration_seconds",
	Help:    "Admin HTTP request latency in seconds.",
	Buckets: prometheus.DefBuckets,
}, []string{"method", "path"})

// ── Handler ───────────────────────────────────────────────────────────────────

// Handler returns the Prometheus HTTP handler. Mount at GET /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ── Middleware ────────────────────────────────────────────────────────────────

// Middleware wraps an HTTP handler to record request counts and latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		dur := time.Since(start).Seconds()
		path := sanitizePath(r.URL.Path)
		status := strconv.Itoa(rw.status)
		HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		HTTPDuration.WithLabelValues(r.Method, path).Observe(dur)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// sanitizePath truncates overlong paths to keep label cardinality bounded.
func sanitizePath(path string) string {
	if len(path) > 64 {
		return path[:64] + "..."
	}
	return path
}

// Init registers fresh copies of four Teamarr metrics (HTTP request count,
// HTTP request duration, generation-in-progress, streams matched) with the
// given registry; the other metrics in this file are not registered. Provided for
// tests — pass prometheus.NewRegistry() to avoid colliding with the global
// default registry across test packages.
func Init(reg prometheus.Registerer) {
	reg.MustRegister(
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_http_requests_total",
			Help: "Total admin HTTP requests handled.",
		}, []string{"method", "path", "status"}),
		prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "teamarr_http_request_duration_seconds",
			Help:    "Admin HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "teamarr_generation_in_progress",
			Help: "1 while an EPG generation run is executing.",
		}),
		prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "teamarr_streams_matched_total",
			Help: "Streams successfully matched to an event, by league.",
		}, []string{"league"}),
	)
}
