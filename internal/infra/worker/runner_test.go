package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
}

func TestRunner_Run(t *testing.T) {
	m := NewWorkerMetrics()
	var calls atomic.Int32
	r := NewRunner(func(ctx context.Context) error {
		calls.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			t.Error("expected run context to carry the sync timeout")
		}
		return nil
	}, time.Minute, newTestLogger(), m)

	if err := r.Run(context.Background(), SourceStartup); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if r.Running() {
		t.Error("lock should be released after the run")
	}
	if v := testutil.ToFloat64(m.SyncLastSuccessTimestamp); v <= 0 {
		t.Error("expected last success timestamp to be set")
	}
}

func TestRunner_Run_PropagatesError(t *testing.T) {
	m := NewWorkerMetrics()
	syncErr := errors.New("index missing")
	r := NewRunner(func(context.Context) error { return syncErr }, time.Minute, newTestLogger(), m)

	if err := r.Run(context.Background(), SourceCron); !errors.Is(err, syncErr) {
		t.Errorf("expected %v, got %v", syncErr, err)
	}
	if v := testutil.ToFloat64(m.SyncLastSuccessTimestamp); v != 0 {
		t.Errorf("failed run should not set last success, got %v", v)
	}
}

func TestRunner_SharedLock(t *testing.T) {
	m := NewWorkerMetrics()
	started := make(chan struct{})
	release := make(chan struct{})
	r := NewRunner(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}, time.Minute, newTestLogger(), m)

	if !r.Trigger(context.Background(), SourceManual) {
		t.Fatal("first trigger should start a run")
	}
	<-started

	if r.Trigger(context.Background(), SourceManual) {
		t.Error("second trigger should be rejected while running")
	}
	if err := r.Run(context.Background(), SourceCron); !errors.Is(err, ErrSyncInProgress) {
		t.Errorf("expected ErrSyncInProgress, got %v", err)
	}

	close(release)
	r.Wait()

	if r.Running() {
		t.Error("lock should be released after the run")
	}
	if v := testutil.ToFloat64(m.SyncSkippedTotal.WithLabelValues(SourceCron)); v != 1 {
		t.Errorf("expected 1 skipped cron trigger, got %v", v)
	}
	if v := testutil.ToFloat64(m.SyncSkippedTotal.WithLabelValues(SourceManual)); v != 1 {
		t.Errorf("expected 1 skipped manual trigger, got %v", v)
	}
}

func TestRunner_TriggerOutlivesCallerContext(t *testing.T) {
	done := make(chan error, 1)
	r := NewRunner(func(ctx context.Context) error {
		time.Sleep(20 * time.Millisecond)
		done <- ctx.Err()
		return nil
	}, time.Minute, newTestLogger(), NewWorkerMetrics())

	ctx, cancel := context.WithCancel(context.Background())
	if !r.Trigger(ctx, SourceManual) {
		t.Fatal("trigger should start a run")
	}
	cancel()
	r.Wait()

	if err := <-done; err != nil {
		t.Errorf("run context should survive caller cancellation, got %v", err)
	}
}
