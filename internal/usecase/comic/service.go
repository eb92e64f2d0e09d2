package comic

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"comic-notifier/internal/domain/entity"
	"comic-notifier/internal/observability/logging"
	"comic-notifier/internal/observability/metrics"
	"comic-notifier/internal/observability/tracing"
	"comic-notifier/internal/pkg/errcollect"
	"comic-notifier/internal/pkg/sanitize"
	"comic-notifier/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// FeedResolver fetches a comic's feed and resolves its latest item.
type FeedResolver interface {
	Resolve(ctx context.Context, comic entity.ComicConfig) (*entity.FeedSnapshot, error)
}

// PageExtractor scans the page chain starting at firstURL.
type PageExtractor interface {
	ExtractChain(ctx context.Context, firstURL string, comic entity.ComicConfig) ([]entity.PageSnapshot, error)
}

// Notifier plans and delivers notifications for one comic.
type Notifier interface {
	Notify(ctx context.Context, feed *entity.FeedSnapshot, pages []entity.PageSnapshot, comic entity.ComicConfig) error
}

// Service provides the comic sync use case.
// It orchestrates index loading, and per comic: feed resolution, page
// extraction and notification.
type Service struct {
	Store    repository.KVStore
	Feeds    FeedResolver
	Pages    PageExtractor
	Notifier Notifier
}

// NewService creates a new comic sync Service with the provided dependencies.
func NewService(store repository.KVStore, feeds FeedResolver, pages PageExtractor, notifier Notifier) *Service {
	return &Service{
		Store:    store,
		Feeds:    feeds,
		Pages:    pages,
		Notifier: notifier,
	}
}

// RunStats contains statistics about one processing pass.
type RunStats struct {
	Comics    int
	Succeeded int64
	Failed    int64
	Pages     int64
}

// RunReport summarizes one sync run.
type RunReport struct {
	RunID string
	RunStats
	// Errors holds every failure of the run, index records included, in the
	// order they were collected.
	Errors   []error
	Duration time.Duration
}

// Process runs every comic of batch concurrently and waits for all of them.
//
// One comic's failure never cancels another. Pipeline failures are gathered
// in a run collector that is merged into batch.Errors once every pipeline has
// settled. Process never returns an error; callers inspect batch.Errors.
func (s *Service) Process(ctx context.Context, batch *Batch) RunStats {
	if batch.Errors == nil {
		batch.Errors = errcollect.New()
	}
	stats := RunStats{Comics: len(batch.Comics)}
	runErrs := errcollect.New()

	var pages, succeeded, failed atomic.Int64
	var g errgroup.Group
	for _, comic := range batch.Comics {
		comic := comic
		g.Go(func() error {
			n, err := s.processComic(ctx, comic)
			pages.Add(int64(n))
			if err != nil {
				failed.Add(1)
				runErrs.Add(err)
				return nil
			}
			succeeded.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	batch.Errors.Merge(runErrs)

	stats.Pages = pages.Load()
	stats.Succeeded = succeeded.Load()
	stats.Failed = failed.Load()
	return stats
}

// ProcessComic runs the pipeline of a single comic:
// resolve feed → extract page chain → plan and deliver notifications.
func (s *Service) ProcessComic(ctx context.Context, comic entity.ComicConfig) error {
	_, err := s.processComic(ctx, comic)
	return err
}

// processComic runs one pipeline and returns the number of extracted pages.
// A panic inside the pipeline is recovered and returned as a ComicError of the
// stage that panicked, wrapping ErrPipelinePanic.
func (s *Service) processComic(ctx context.Context, comic entity.ComicConfig) (pages int, err error) {
	ctx, span := tracing.GetTracer().Start(ctx, "comic.process")
	span.SetAttributes(attribute.String("comic", comic.Name()))
	start := time.Now()
	stage := entity.KindFeed

	defer func() {
		if r := recover(); r != nil {
			logging.FromContext(ctx).Error("comic pipeline panicked",
				slog.String("comic", comic.Name()),
				slog.String("kind", string(stage)),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = &entity.ComicError{
				Kind:      stage,
				ComicName: comic.Name(),
				Message:   fmt.Sprintf("recovered from panic: %v", r),
				Err:       ErrPipelinePanic,
			}
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "comic pipeline failed")
		}
		span.SetAttributes(attribute.Int("pages", pages))
		span.End()
		metrics.RecordComicProcessed(err == nil, time.Since(start))
	}()

	feed, err := s.Feeds.Resolve(ctx, comic)
	if err != nil {
		return 0, err
	}

	stage = entity.KindPage
	chain, err := s.Pages.ExtractChain(ctx, feed.PageLink, comic)
	if err != nil {
		return 0, err
	}
	metrics.RecordPagesExtracted(len(chain))

	stage = entity.KindNotifier
	if err := s.Notifier.Notify(ctx, feed, chain, comic); err != nil {
		return len(chain), err
	}
	return len(chain), nil
}

// Run performs one full sync: load the index, process every comic and report.
//
// Every collected failure is logged with webhook tokens masked, followed by a
// summary line with the run duration. Run fails only when the index itself
// cannot be loaded; per-comic failures are returned in RunReport.Errors.
func (s *Service) Run(ctx context.Context) (*RunReport, error) {
	start := time.Now()
	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, logging.FromContext(ctx), runID)
	logger := logging.FromContext(ctx)

	ctx, span := tracing.GetTracer().Start(ctx, "sync.run")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", runID))

	logger.Info("Starting sync.")

	batch, err := LoadIndex(ctx, s.Store)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "index load failed")
		metrics.RecordComicError(err)
		metrics.RecordSyncRun(metrics.RunFailure, time.Since(start))
		logger.Error("sync aborted", slog.String("error", sanitize.Error(err)))
		return nil, err
	}

	stats := s.Process(ctx, batch)

	report := &RunReport{
		RunID:    runID,
		RunStats: stats,
		Errors:   batch.Errors.Errors(),
		Duration: time.Since(start),
	}

	for _, e := range report.Errors {
		metrics.RecordComicError(e)
		logger.Error("comic sync failed",
			slog.String("kind", string(entity.KindOf(e))),
			slog.String("error", sanitize.Error(e)))
	}

	result := metrics.RunSuccess
	if len(report.Errors) > 0 {
		result = metrics.RunPartial
		span.SetStatus(codes.Error, fmt.Sprintf("%d errors", len(report.Errors)))
	}
	metrics.RecordSyncRun(result, report.Duration)

	logger.Info(fmt.Sprintf("Sync finished in %.2f seconds.", report.Duration.Seconds()),
		slog.Int("comics", stats.Comics),
		slog.Int64("succeeded", stats.Succeeded),
		slog.Int64("failed", stats.Failed),
		slog.Int64("pages", stats.Pages),
		slog.Int("errors", len(report.Errors)))

	return report, nil
}
