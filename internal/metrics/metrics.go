// Package metrics provides Prometheus instrumentation for the history engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MonthAggregations counts full month recomputations, by category.
	MonthAggregations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "history_month_aggregations_total",
		Help: "Total number of monthly summary recomputations",
	}, []string{"category"})

	// AggregationDuration tracks how long a month recomputation takes.
	AggregationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "history_aggregation_duration_seconds",
		Help:    "Monthly aggregation duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	})

	// SummaryCacheWriteFailures counts failed summary write-backs. The read
	// path tolerates these, so the counter is the only place they surface
	// besides the log.
	SummaryCacheWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "history_summary_cache_write_failures_total",
		Help: "Monthly summary cache writes that failed",
	})

	// BetUpdates counts settlement mutations, by resulting bet status.
	BetUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "history_bet_updates_total",
		Help: "Total bet/selection settlement updates",
	}, []string{"status"})

	// DaysPublished counts day documents published through the write path.
	DaysPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "history_days_published_total",
		Help: "Day documents published",
	}, []string{"category"})

	// ParseFailures counts day documents skipped as unreadable.
	ParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "history_day_parse_failures_total",
		Help: "Day documents skipped due to malformed JSON",
	})

	// WebSocketClients tracks connected settlement-feed clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "history_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "history_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "history_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays bounded.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
