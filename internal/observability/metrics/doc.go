// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the sync worker metrics:
//   - Sync run metrics (count by result, duration, last run time)
//   - Comic pipeline metrics (results, errors by kind, pages extracted)
//   - Outbound fetch circuit breaker transitions
//
// Webhook delivery metrics live with the notify use case.
// All metrics are registered with the Prometheus default registry and exposed
// via the worker's /metrics endpoint.
package metrics
