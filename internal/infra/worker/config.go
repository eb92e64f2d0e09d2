// Package worker holds the sync worker's runtime pieces: its configuration,
// the run lock shared by the cron schedule and the manual trigger, the
// admin/health server and the worker metrics.
package worker

import (
	"fmt"
	"log/slog"
	"time"

	"comic-notifier/internal/pkg/config"
)

const (
	minSyncTimeout = time.Minute
	maxSyncTimeout = 4 * time.Hour
)

// WorkerConfig contains configuration for the sync worker.
type WorkerConfig struct {
	// CronSchedule is a standard 5-field cron expression.
	// Default: "*/15 * * * *" (every 15 minutes)
	CronSchedule string

	// Timezone is the IANA zone the schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// SyncTimeout bounds one sync run.
	// Default: 10 minutes. Valid range: 1m - 4h
	SyncTimeout time.Duration

	// HealthPort serves /health, /health/ready and POST /sync.
	// Default: 9091
	HealthPort int

	// MetricsPort serves /metrics.
	// Default: 9090
	MetricsPort int

	// RunOnce performs a single sync and exits instead of scheduling.
	RunOnce bool
}

// DefaultConfig returns a WorkerConfig with sensible default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "*/15 * * * *",
		Timezone:     "UTC",
		SyncTimeout:  10 * time.Minute,
		HealthPort:   9091,
		MetricsPort:  9090,
		RunOnce:      false,
	}
}

// Validate checks every field and returns the first violation.
func (c *WorkerConfig) Validate() error {
	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		return err
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		return err
	}
	if err := config.ValidateDuration(c.SyncTimeout, minSyncTimeout, maxSyncTimeout); err != nil {
		return fmt.Errorf("sync timeout: %w", err)
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		return fmt.Errorf("health port: %w", err)
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		return fmt.Errorf("metrics port: %w", err)
	}
	if c.HealthPort == c.MetricsPort {
		return fmt.Errorf("health port and metrics port must differ, both are %d", c.HealthPort)
	}
	return nil
}

// Location returns the schedule's time zone, UTC when Timezone is invalid.
func (c *WorkerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LoadConfigFromEnv loads WorkerConfig from environment variables.
//
// Environment variables:
//   - CRON_SCHEDULE: cron expression (default "*/15 * * * *")
//   - WORKER_TIMEZONE: IANA timezone (default "UTC")
//   - SYNC_TIMEOUT: Go duration, 1m - 4h (default "10m")
//   - WORKER_HEALTH_PORT: 1024 - 65535 (default 9091)
//   - METRICS_PORT: 1024 - 65535 (default 9090)
//   - RUN_ONCE: boolean (default false)
//
// Invalid values fall back to their defaults; each fallback is logged and
// counted in metrics. The returned error is always nil unless the combined
// configuration is still invalid, e.g. both ports set to the same value.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	def := DefaultConfig()
	cfg := def

	r := config.LoadEnvWithFallback("CRON_SCHEDULE", def.CronSchedule, config.ValidateCronSchedule)
	metrics.Track(logger, "cron_schedule", r)
	cfg.CronSchedule = r.Value.(string)

	r = config.LoadEnvWithFallback("WORKER_TIMEZONE", def.Timezone, config.ValidateTimezone)
	metrics.Track(logger, "timezone", r)
	cfg.Timezone = r.Value.(string)

	r = config.LoadEnvDuration("SYNC_TIMEOUT", def.SyncTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, minSyncTimeout, maxSyncTimeout)
	})
	metrics.Track(logger, "sync_timeout", r)
	cfg.SyncTimeout = r.Value.(time.Duration)

	portValidator := func(v int) error { return config.ValidateIntRange(v, 1024, 65535) }

	r = config.LoadEnvInt("WORKER_HEALTH_PORT", def.HealthPort, portValidator)
	metrics.Track(logger, "health_port", r)
	cfg.HealthPort = r.Value.(int)

	r = config.LoadEnvInt("METRICS_PORT", def.MetricsPort, portValidator)
	metrics.Track(logger, "metrics_port", r)
	cfg.MetricsPort = r.Value.(int)

	r = config.LoadEnvBool("RUN_ONCE", def.RunOnce)
	metrics.Track(logger, "run_once", r)
	cfg.RunOnce = r.Value.(bool)

	metrics.RecordLoadTimestamp()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("worker configuration: %w", err)
	}

	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone),
		slog.Duration("sync_timeout", cfg.SyncTimeout),
		slog.Int("health_port", cfg.HealthPort),
		slog.Int("metrics_port", cfg.MetricsPort),
		slog.Bool("run_once", cfg.RunOnce))

	return &cfg, nil
}
