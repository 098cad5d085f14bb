package translate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Backend request metrics
	backendRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_backend_requests_total",
			Help: "Total number of requests sent to translation and LLM backends",
		},
		[]string{"backend", "operation", "status"},
	)

	backendRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_backend_request_duration_seconds",
			Help:    "Duration of backend requests in seconds",
			Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0},
		},
		[]string{"backend", "operation"},
	)

	backendRequestSize = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polyglot_backend_request_size_bytes",
			Help:    "Size of text sent to backends in bytes",
			Buckets: []float64{16, 64, 256, 1000, 3000, 10000, 50000},
		},
		[]string{"backend"},
	)

	// Pipeline metrics
	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_fallbacks_total",
			Help: "Number of times the secondary backend was tried after the primary failed",
		},
		[]string{"reason"},
	)

	detectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_detections_total",
			Help: "Language detections by path and outcome",
		},
		[]string{"path", "outcome"},
	)

	batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_batch_items_total",
			Help: "Batch items processed by outcome",
		},
		[]string{"outcome"},
	)

	longTextChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_long_text_chunks_total",
			Help: "Long-text chunks processed by outcome",
		},
		[]string{"outcome"},
	)

	poolBusyWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polyglot_pool_busy_workers",
			Help: "Number of pipeline workers currently running a task",
		},
	)

	jobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polyglot_jobs_total",
			Help: "Document translation jobs by final status",
		},
		[]string{"status"},
	)
)

// RecordBackendRequest records metrics for a single backend call.
func RecordBackendRequest(backend, operation string, duration time.Duration, requestSize int, err error) {
	backendRequestsTotal.WithLabelValues(backend, operation, ErrorKind(err)).Inc()
	backendRequestDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	backendRequestSize.WithLabelValues(backend).Observe(float64(requestSize))
}

// RecordFallback records that the secondary backend was used.
func RecordFallback(primaryErr error) {
	fallbacksTotal.WithLabelValues(ErrorKind(primaryErr)).Inc()
}

// RecordDetection records the outcome of one detection path ("llm" or "statistical").
func RecordDetection(path string, ok bool) {
	outcome := "detected"
	if !ok {
		outcome = "none"
	}
	detectionsTotal.WithLabelValues(path, outcome).Inc()
}

// RecordBatchItem records a finished batch item.
func RecordBatchItem(translated bool) {
	outcome := "translated"
	if !translated {
		outcome = "failed"
	}
	batchItemsTotal.WithLabelValues(outcome).Inc()
}

// RecordChunk records a long-text chunk outcome ("translated", "failed", "skipped").
func RecordChunk(outcome string) {
	longTextChunksTotal.WithLabelValues(outcome).Inc()
}

// WorkerBusy adjusts the busy worker gauge by delta.
func WorkerBusy(delta int) {
	poolBusyWorkers.Add(float64(delta))
}

// RecordJob records a document job reaching a final status.
func RecordJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}
