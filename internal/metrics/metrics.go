// Package metrics exposes Prometheus instrumentation for the three server
// binaries, following the teacher's promauto-based registration style.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics.
	IngestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracewell_ingest_requests_total",
			Help: "Total number of /ingest requests by envelope type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	IngestRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracewell_ingest_request_duration_seconds",
			Help:    "Duration of /ingest request handling.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	IngestBatchPartial = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracewell_ingest_batch_partial_total",
			Help: "Total number of decisions batches accepted with a partial queue count.",
		},
	)

	// Queue metrics.
	QueuePushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracewell_queue_push_total",
			Help: "Total number of queue push attempts by adapter and outcome.",
		},
		[]string{"adapter", "outcome"},
	)

	QueuePollBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tracewell_queue_poll_batch_size",
			Help:    "Number of messages returned per poll.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	DLQTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracewell_dlq_total",
			Help: "Total number of messages routed to the DLQ by category.",
		},
		[]string{"category"},
	)

	// Processor metrics.
	ProcessorMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracewell_processor_messages_total",
			Help: "Total number of processed messages by envelope type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	ProcessorMessageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracewell_processor_message_duration_seconds",
			Help:    "Duration of per-message processing.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	ProcessorDuplicatesSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tracewell_processor_duplicates_skipped_total",
			Help: "Total number of messages skipped because their id was already seen.",
		},
	)

	// Blob-store metrics.
	BlobPutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracewell_blobstore_put_duration_seconds",
			Help:    "Duration of blob-store Put calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	BlobPutErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracewell_blobstore_put_errors_total",
			Help: "Total number of blob-store Put errors.",
		},
		[]string{"backend"},
	)

	// Analytical-store metrics.
	AnalyticsQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracewell_analytics_query_duration_seconds",
			Help:    "Duration of analytical-store queries.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	AnalyticsQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tracewell_analytics_query_errors_total",
			Help: "Total number of analytical-store query errors.",
		},
		[]string{"operation", "table"},
	)

	// Query-API metrics.
	QueryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tracewell_query_request_duration_seconds",
			Help:    "Duration of query API requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
)

// ObserveDuration records elapsed time on a histogram, matching the
// teacher's start-time-and-defer pattern used around query execution.
func ObserveDuration(h prometheus.Observer, start time.Time) {
	h.Observe(time.Since(start).Seconds())
}
