// Package observability provides the worker's observability infrastructure:
// structured logging, Prometheus metrics and OpenTelemetry tracing.
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics for sync runs and comic pipelines
//   - tracing: OpenTelemetry tracer and admin router middleware
package observability
