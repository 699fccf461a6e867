package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_messages_ingested_total",
		Help: "The total number of ingested messages",
	}, []string{"channel"})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_messages_processed_total",
		Help: "The total number of messages processed, by final disposition",
	}, []string{"disposition"})

	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_embedding_requests_total",
		Help: "The total number of embedding API requests",
	}, []string{"status"})

	EmbeddingRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_embedding_request_duration_seconds",
		Help:    "Duration of embedding API requests",
		Buckets: prometheus.DefBuckets,
	})

	SelectionRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "curator_selection_request_duration_seconds",
		Help:    "Duration of selection LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	SelectionRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_selection_retries_total",
		Help: "The total number of selection request retries",
	})

	SelectionChunksFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_selection_chunks_failed_total",
		Help: "The total number of selection chunks degraded to empty after retries",
	})

	ModerationSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_moderation_sessions_total",
		Help: "The total number of resolved moderation sessions, by status",
	}, []string{"status"})

	DigestsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curator_digests_published_total",
		Help: "The total number of digests published",
	}, []string{"category", "status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curator_run_duration_seconds",
		Help:    "Duration of full curation runs",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
	})

	DispositionCommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curator_disposition_commit_failures_total",
		Help: "The total number of disposition commits that failed after retries",
	})
)
