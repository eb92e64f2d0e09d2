package metrics

import (
	"time"

	"comic-notifier/internal/domain/entity"
)

// Sync run results
const (
	RunSuccess = "success"
	RunPartial = "partial"
	RunFailure = "failure"
)

// RecordSyncRun records the result and duration of one sync run.
// result is one of RunSuccess, RunPartial or RunFailure.
func RecordSyncRun(result string, duration time.Duration) {
	SyncRunsTotal.WithLabelValues(result).Inc()
	SyncRunDuration.Observe(duration.Seconds())
	LastSyncTimestamp.SetToCurrentTime()
}

// RecordComicProcessed records the outcome of one comic pipeline.
func RecordComicProcessed(success bool, duration time.Duration) {
	result := "success"
	if !success {
		result = "failure"
	}
	ComicsProcessedTotal.WithLabelValues(result).Inc()
	ComicPipelineDuration.Observe(duration.Seconds())
}

// RecordComicError records one pipeline error under its kind.
// Errors that are not ComicErrors are counted as "unknown".
func RecordComicError(err error) {
	kind := string(entity.KindOf(err))
	if kind == "" {
		kind = "unknown"
	}
	ComicErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordPagesExtracted records the number of pages extracted for one comic.
func RecordPagesExtracted(count int) {
	if count > 0 {
		PagesExtractedTotal.Add(float64(count))
	}
}

// RecordBreakerStateChange records a per-host circuit breaker transition.
func RecordBreakerStateChange(host, to string) {
	BreakerStateChangesTotal.WithLabelValues(host, to).Inc()
}
