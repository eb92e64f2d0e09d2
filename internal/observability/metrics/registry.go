// Package metrics provides centralized Prometheus metrics for the application.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync metrics track whole runs
var (
	// SyncRunsTotal counts sync runs by result
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_sync_runs_total",
			Help: "Total number of sync runs",
		},
		[]string{"result"}, // result: success, partial, failure
	)

	// SyncRunDuration measures sync run duration in seconds
	SyncRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comic_sync_run_duration_seconds",
			Help:    "Sync run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12),
		},
	)

	// LastSyncTimestamp records when the last sync run finished
	LastSyncTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "comic_last_sync_timestamp_seconds",
			Help: "Unix timestamp of the last finished sync run",
		},
	)
)

// Comic metrics track individual comic pipelines
var (
	// ComicsProcessedTotal counts comic pipelines by result
	ComicsProcessedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_pipelines_total",
			Help: "Total number of comic pipelines run",
		},
		[]string{"result"}, // result: success, failure
	)

	// ComicErrorsTotal counts pipeline errors by kind
	ComicErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_errors_total",
			Help: "Total number of comic errors by kind",
		},
		[]string{"kind"}, // kind: config, feed, page, notifier, unknown
	)

	// PagesExtractedTotal counts extracted comic pages
	PagesExtractedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "comic_pages_extracted_total",
			Help: "Total number of comic pages extracted",
		},
	)

	// ComicPipelineDuration measures one comic pipeline in seconds
	ComicPipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "comic_pipeline_duration_seconds",
			Help:    "Time taken to process one comic",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)
)

// Outbound HTTP metrics
var (
	// BreakerStateChangesTotal counts per-host circuit breaker transitions
	BreakerStateChangesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "comic_fetch_breaker_state_changes_total",
			Help: "Total number of per-host circuit breaker state changes",
		},
		[]string{"host", "to"},
	)
)
