package worker

import (
	"comic-notifier/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Trigger sources.
const (
	SourceCron    = "cron"
	SourceManual  = "manual"
	SourceStartup = "startup"
)

// WorkerMetrics provides Prometheus metrics for the worker component.
// It embeds the standard ConfigMetrics for configuration monitoring and adds
// job scheduling metrics. Sync outcomes themselves are recorded by the
// observability/metrics package.
//
// Worker-specific metrics:
//   - worker_sync_triggers_total: sync triggers by source (cron, manual, startup)
//   - worker_sync_skipped_total: triggers dropped because a run was in progress
//   - worker_sync_running: 1 while a run holds the lock
//   - worker_sync_last_success_timestamp: Unix timestamp of the last run without errors
type WorkerMetrics struct {
	*config.ConfigMetrics

	SyncTriggersTotal        *prometheus.CounterVec
	SyncSkippedTotal         *prometheus.CounterVec
	SyncRunning              prometheus.Gauge
	SyncLastSuccessTimestamp prometheus.Gauge
}

// NewWorkerMetrics creates unregistered worker metrics. Call MustRegister.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),

		SyncTriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_sync_triggers_total",
			Help: "Total number of sync triggers by source",
		}, []string{"source"}),

		SyncSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_sync_skipped_total",
			Help: "Total number of sync triggers skipped because a run was in progress",
		}, []string{"source"}),

		SyncRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_sync_running",
			Help: "1 while a sync run is in progress",
		}),

		SyncLastSuccessTimestamp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "worker_sync_last_success_timestamp",
			Help: "Unix timestamp of the last sync run that finished without errors",
		}),
	}
}

// MustRegister registers every worker metric, configuration metrics included.
func (m *WorkerMetrics) MustRegister(reg prometheus.Registerer) {
	m.ConfigMetrics.MustRegister(reg)
	reg.MustRegister(m.SyncTriggersTotal, m.SyncSkippedTotal, m.SyncRunning, m.SyncLastSuccessTimestamp)
}

// RecordTrigger counts a sync trigger from source.
func (m *WorkerMetrics) RecordTrigger(source string) {
	m.SyncTriggersTotal.WithLabelValues(source).Inc()
}

// RecordSkipped counts a trigger dropped by the run lock.
func (m *WorkerMetrics) RecordSkipped(source string) {
	m.SyncSkippedTotal.WithLabelValues(source).Inc()
}

// SetRunning flips the running gauge.
func (m *WorkerMetrics) SetRunning(running bool) {
	if running {
		m.SyncRunning.Set(1)
		return
	}
	m.SyncRunning.Set(0)
}

// RecordLastSuccess sets the last success timestamp to now.
func (m *WorkerMetrics) RecordLastSuccess() {
	m.SyncLastSuccessTimestamp.SetToCurrentTime()
}
