package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecordsIngestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_ingested_total",
		Help: "Total number of new order records inserted into the store",
	})

	RecordsSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "records_skipped_total",
		Help: "Total number of duplicate records absorbed during ingestion",
	})

	RecordsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "records_dropped_total",
		Help: "Total number of rows dropped during schema cleaning",
	}, []string{"reason"})

	IngestFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_failed_total",
		Help: "Total number of failed ingestion runs",
	}, []string{"reason"})

	TrainingRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "training_runs_total",
		Help: "Total number of completed training runs",
	})

	TrainingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "training_duration_seconds",
		Help:    "Wall-clock duration of model training runs",
		Buckets: prometheus.DefBuckets,
	})

	TrainingMAE = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "training_in_sample_mae",
		Help: "In-sample mean absolute error of the latest trained model",
	})

	RecommendationsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recommendations_generated_total",
		Help: "Total number of recommendations returned to callers",
	})

	RecommendationRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_requests_total",
		Help: "Total number of recommendation requests",
	}, []string{"status"})

	MissingHistoryFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "missing_history_fallbacks_total",
		Help: "Total number of medications scored from the fallback consumption estimate",
	})

	RecommendationCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendation_cache_total",
		Help: "Recommendation cache lookups by outcome",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
