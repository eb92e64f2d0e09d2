package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// instrumentationName identifies spans produced by comic-notifier.
const instrumentationName = "comic-notifier"

// GetTracer returns the tracer for creating spans.
// It is resolved from the global provider on every call, so a provider
// installed after package init (for example by tests) is honored.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "operation-name")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
