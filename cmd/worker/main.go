package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sony/gobreaker"

	"comic-notifier/internal/config"
	"comic-notifier/internal/infra/adapter/persistence"
	"comic-notifier/internal/infra/httpclient"
	"comic-notifier/internal/infra/notifier"
	"comic-notifier/internal/infra/scraper"
	"comic-notifier/internal/infra/scraper/htmlscan"
	workerPkg "comic-notifier/internal/infra/worker"
	"comic-notifier/internal/observability/logging"
	"comic-notifier/internal/observability/metrics"
	"comic-notifier/internal/observability/tracing"
	pkgconfig "comic-notifier/internal/pkg/config"
	"comic-notifier/internal/pkg/sanitize"
	"comic-notifier/internal/repository"
	"comic-notifier/internal/usecase/comic"
	"comic-notifier/internal/usecase/notify"
)

func main() {
	os.Exit(run())
}

func run() int {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration (fail-open for tunables)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister(prometheus.DefaultRegisterer)
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		return 1
	}

	appMetrics := pkgconfig.NewConfigMetrics("app")
	appMetrics.MustRegister(prometheus.DefaultRegisterer)
	appConfig, err := config.LoadAppConfig(logger, appMetrics)
	if err != nil {
		logger.Error("failed to load application configuration", slog.String("error", sanitize.Error(err)))
		return 1
	}

	sampleRatio := pkgconfig.LoadEnvFloat("TRACE_SAMPLE_RATIO", 1.0, func(v float64) error {
		return pkgconfig.ValidateFloatRange(v, 0, 1)
	})
	appMetrics.Track(logger, "trace_sample_ratio", sampleRatio)
	shutdownTracing := tracing.InitProvider(sampleRatio.Value.(float64))
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("failed to shut down tracer provider", slog.Any("error", err))
		}
	}()

	store, closer, err := persistence.Open(ctx, persistence.Options{
		Backend:     appConfig.Cache.Backend,
		DatabaseURL: appConfig.Cache.DatabaseURL,
		SQLitePath:  appConfig.Cache.SQLitePath,
	})
	if err != nil {
		logger.Error("failed to open cache", slog.String("backend", appConfig.Cache.Backend), slog.String("error", sanitize.Error(err)))
		return 1
	}
	defer func() {
		if err := closer.Close(); err != nil {
			logger.Error("failed to close cache", slog.Any("error", err))
		}
	}()
	logger.Info("cache opened", slog.String("backend", appConfig.Cache.Backend))

	svc, transport := setupSyncService(logger, appConfig, store)
	runner := workerPkg.NewRunner(func(ctx context.Context) error {
		_, err := svc.Run(logging.WithLogger(ctx, logger))
		return err
	}, workerConfig.SyncTimeout, logger, workerMetrics)

	if workerConfig.RunOnce {
		if err := runner.Run(ctx, workerPkg.SourceStartup); err != nil {
			return 1
		}
		return 0
	}

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, workerConfig.MetricsPort, transport)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger, runner)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()

	if err := startCronWorker(ctx, logger, runner, workerConfig, healthServer); err != nil {
		logger.Error("failed to start scheduler", slog.Any("error", err))
		return 1
	}
	return 0
}

// setupSyncService wires the scraper, the notification planner and the cache
// into a comic.Service. The returned transport exposes per-host breaker state.
func setupSyncService(logger *slog.Logger, cfg *config.AppConfig, store repository.KVStore) (*comic.Service, *httpclient.Transport) {
	clientConfig := cfg.HTTPClientConfig()
	clientConfig.OnBreakerStateChange = func(host string, from, to gobreaker.State) {
		metrics.RecordBreakerStateChange(host, to.String())
		logger.Warn("circuit breaker state changed",
			slog.String("host", host),
			slog.String("from", from.String()),
			slog.String("to", to.String()))
	}
	transport := httpclient.NewTransport(http.DefaultTransport, clientConfig)
	client := &http.Client{Timeout: clientConfig.Timeout, Transport: transport}

	var sender notify.Sender
	if cfg.Webhook.DryRun {
		sender = notifier.NewDryRunSender(logger)
		logger.Info("webhook dry run enabled, deliveries will only be logged")
	} else {
		sender = notifier.NewWebhookSender(cfg.DiscordConfig())
	}

	svc := comic.NewService(store,
		scraper.NewFeedResolver(client),
		scraper.NewPageExtractor(client, htmlscan.New(), scraper.WithMaxPages(cfg.Fetch.MaxPages)),
		notify.NewPlanner(store, sender),
	)
	return svc, transport
}

// startCronWorker schedules sync runs and blocks until ctx is cancelled.
// The cron chain skips a tick while the previous one is still running, and the
// runner's lock also rejects ticks that collide with a manual trigger.
func startCronWorker(ctx context.Context, logger *slog.Logger, runner *workerPkg.Runner, cfg *workerPkg.WorkerConfig, healthServer *workerPkg.HealthServer) error {
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelInfo))
	c := cron.New(
		cron.WithLocation(cfg.Location()),
		cron.WithLogger(cronLogger),
		cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
	)

	_, err := c.AddFunc(cfg.CronSchedule, func() {
		_ = runner.Run(ctx, workerPkg.SourceCron)
	})
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))

	<-ctx.Done()
	logger.Info("shutdown signal received, waiting for running sync")
	healthServer.SetReady(false)

	stopped := c.Stop()
	select {
	case <-stopped.Done():
	case <-time.After(cfg.SyncTimeout):
		logger.Warn("scheduler did not stop before sync timeout")
	}
	runner.Wait()
	logger.Info("worker stopped")
	return nil
}
