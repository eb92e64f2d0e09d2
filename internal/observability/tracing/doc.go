// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are opened around a sync run, each comic pipeline and each webhook
// delivery. The worker's admin router is wrapped with Middleware so manual
// sync triggers join the same trace.
//
// No exporter is installed by default; spans are dropped unless a tracer
// provider is registered with otel.SetTracerProvider.
package tracing
