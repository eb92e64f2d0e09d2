package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker"
)

// breakerSource reports per-host breaker state.
type breakerSource interface {
	BreakerStates() map[string]gobreaker.State
}

// HostHealthResponse is the /health/hosts payload.
type HostHealthResponse struct {
	Healthy bool         `json:"healthy"`
	Hosts   []HostStatus `json:"hosts"`
}

// HostStatus is the breaker state of one comic host.
type HostStatus struct {
	Host  string `json:"host"`
	State string `json:"state"`
}

// startMetricsServer serves /metrics and /health/hosts on port until ctx is cancelled.
func startMetricsServer(ctx context.Context, logger *slog.Logger, port int, breakers breakerSource) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/hosts", hostHealthHandler(breakers))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("metrics server stopped")
		}
	}()

	return server
}

// hostHealthHandler reports 503 while any host's breaker is open.
func hostHealthHandler(breakers breakerSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		states := breakers.BreakerStates()

		hosts := make([]HostStatus, 0, len(states))
		healthy := true
		for host, state := range states {
			hosts = append(hosts, HostStatus{Host: host, State: state.String()})
			if state == gobreaker.StateOpen {
				healthy = false
			}
		}
		sort.Slice(hosts, func(i, j int) bool { return hosts[i].Host < hosts[j].Host })

		statusCode := http.StatusOK
		if !healthy {
			statusCode = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(HostHealthResponse{Healthy: healthy, Hosts: hosts})
	}
}
