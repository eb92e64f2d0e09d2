package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"comic-notifier/internal/observability/tracing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthServer serves the worker's admin endpoints.
//
// Endpoints:
//   - GET /health: liveness, always 200 while the process is up
//   - GET /health/ready: 200 once the scheduler is running, 503 before
//   - POST /sync: starts a sync run in the background, 202 or 409 while a run is active
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	runner  *Runner
	isReady *atomic.Bool
	server  *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthServer creates a not-ready HealthServer. runner may be nil, in
// which case POST /sync answers 503.
func NewHealthServer(addr string, logger *slog.Logger, runner *Runner) *HealthServer {
	return &HealthServer{
		addr:    addr,
		logger:  logger,
		runner:  runner,
		isReady: &atomic.Bool{},
	}
}

// Handler returns the admin router.
func (h *HealthServer) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(tracing.Middleware)

	r.Get("/health", h.handleLiveness)
	r.Get("/health/ready", h.handleReadiness)
	r.Post("/sync", h.handleSync)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully and
// returns http.ErrServerClosed.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady updates the readiness state.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, http.StatusOK, "ok")
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeStatus(w, http.StatusOK, "ok")
		return
	}
	h.writeStatus(w, http.StatusServiceUnavailable, "not ready")
}

func (h *HealthServer) handleSync(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil || !h.isReady.Load() {
		h.writeStatus(w, http.StatusServiceUnavailable, "not ready")
		return
	}
	if !h.runner.Trigger(r.Context(), SourceManual) {
		h.writeStatus(w, http.StatusConflict, "sync already in progress")
		return
	}
	h.writeStatus(w, http.StatusAccepted, "sync started")
}

func (h *HealthServer) writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(healthResponse{Status: status}); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
