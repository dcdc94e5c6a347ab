// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cm_admin_build_info",
			Help: "Build information of the cm-admin server",
		},
		[]string{"version", "commit", "date"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_admin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_admin_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cm_admin_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_admin_etl_uploads_total",
			Help: "ETL uploads by dataset and outcome (ok, empty, invalid, config, failed)",
		},
		[]string{"dataset", "outcome"},
	)

	UploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cm_admin_etl_upload_duration_seconds",
			Help:    "Duration of ETL uploads from decode to commit",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"dataset"},
	)

	RowsStaged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_admin_etl_rows_staged_total",
			Help: "Rows written to staging tables",
		},
		[]string{"dataset"},
	)

	RowsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cm_admin_etl_rows_appended_total",
			Help: "Rows appended to permanent versioned tables",
		},
		[]string{"dataset"},
	)

	ArchiveFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "cm_admin_archive_failures_total",
			Help: "Raw payload archive uploads that failed",
		},
	)

	ConfigDriftProblems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cm_admin_transfer_config_drift",
			Help: "Fatal dataset/routine mismatches found by the last consistency check",
		},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cm_admin_active_sessions",
			Help: "Live login sessions after the last sweep",
		},
	)
)

// Middleware returns a chi middleware that records HTTP metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		// Route pattern keeps path labels bounded.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(ww.Status())
		HTTPRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
