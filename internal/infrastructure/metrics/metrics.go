package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stream-API Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	// Transcode pipeline
	TranscodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "transcode_jobs_total",
			Help:      "Total transcode jobs by terminal state",
		},
		[]string{"status"},
	)

	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "transcode_duration_seconds",
			Help:      "Encoder wall-clock time per job",
			Buckets:   []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	ActiveJobs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "active_transcode_jobs",
			Help:      "Transcode jobs currently running",
		},
	)

	// Object store operations
	StoreOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "store_operations_total",
			Help:      "Total object store operations",
		},
		[]string{"operation", "status"},
	)

	StoreDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "store_duration_seconds",
			Help:      "Object store operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"operation"},
	)

	PresignDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "presign_duration_seconds",
			Help:      "Signed URL generation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1},
		},
	)

	// Refresh scheduler
	RefreshRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vodflow",
			Subsystem: "stream_api",
			Name:      "refresh_runs_total",
			Help:      "Playlist refresh attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordTranscode records a finished transcode job
func RecordTranscode(status string, durationSec float64) {
	TranscodeJobsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		TranscodeDuration.Observe(durationSec)
	}
}

// RecordStoreOperation records an object store operation
func RecordStoreOperation(operation, status string, durationSec float64) {
	StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	StoreDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordPresign records signed URL generation
func RecordPresign(durationSec float64) {
	PresignDuration.Observe(durationSec)
}

// RecordRefresh records one refresh attempt outcome: success, failure, or skipped.
func RecordRefresh(outcome string) {
	RefreshRunsTotal.WithLabelValues(outcome).Inc()
}
