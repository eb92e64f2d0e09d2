package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ErrSyncInProgress is returned when a trigger arrives while a run holds the lock.
var ErrSyncInProgress = errors.New("sync already in progress")

// SyncFunc performs one sync run.
type SyncFunc func(ctx context.Context) error

// Runner serializes sync runs within the process. The cron schedule and the
// manual trigger share one Runner so at most one run is active at a time.
type Runner struct {
	sync    SyncFunc
	timeout time.Duration
	logger  *slog.Logger
	metrics *WorkerMetrics

	running atomic.Bool
	wg      sync.WaitGroup
}

// NewRunner creates a Runner. Each run gets its own context bounded by timeout.
func NewRunner(fn SyncFunc, timeout time.Duration, logger *slog.Logger, metrics *WorkerMetrics) *Runner {
	return &Runner{
		sync:    fn,
		timeout: timeout,
		logger:  logger,
		metrics: metrics,
	}
}

// Running reports whether a run currently holds the lock.
func (r *Runner) Running() bool {
	return r.running.Load()
}

// Run performs a sync synchronously. It returns ErrSyncInProgress without
// running when another run is active.
func (r *Runner) Run(ctx context.Context, source string) error {
	if !r.acquire(source) {
		return ErrSyncInProgress
	}
	r.wg.Add(1)
	return r.run(ctx, source)
}

// Trigger starts a sync in the background and reports whether it started.
// The run is detached from ctx cancellation so it outlives the HTTP request
// that triggered it.
func (r *Runner) Trigger(ctx context.Context, source string) bool {
	if !r.acquire(source) {
		return false
	}
	r.wg.Add(1)
	go func() {
		_ = r.run(context.WithoutCancel(ctx), source)
	}()
	return true
}

// Wait blocks until every started run has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) acquire(source string) bool {
	r.metrics.RecordTrigger(source)
	if !r.running.CompareAndSwap(false, true) {
		r.metrics.RecordSkipped(source)
		r.logger.Warn("sync skipped, previous run still in progress", slog.String("source", source))
		return false
	}
	r.metrics.SetRunning(true)
	return true
}

func (r *Runner) run(ctx context.Context, source string) error {
	defer r.wg.Done()
	defer func() {
		r.running.Store(false)
		r.metrics.SetRunning(false)
	}()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	r.logger.Info("sync triggered", slog.String("source", source))
	if err := r.sync(ctx); err != nil {
		r.logger.Error("sync failed", slog.String("source", source), slog.Any("error", err))
		return err
	}
	r.metrics.RecordLastSuccess()
	return nil
}
