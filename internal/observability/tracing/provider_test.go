package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	recorder := tracetest.NewSpanRecorder()
	shutdown := InitProvider(1.0, sdktrace.WithSpanProcessor(recorder))

	_, span := GetTracer().Start(context.Background(), "sync.run")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, shutdown(context.Background()))
	require.Len(t, recorder.Ended(), 1)
	assert.Equal(t, "sync.run", recorder.Ended()[0].Name())
}

func TestInitProvider_ZeroRatioDropsSpans(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	recorder := tracetest.NewSpanRecorder()
	shutdown := InitProvider(0, sdktrace.WithSpanProcessor(recorder))
	defer shutdown(context.Background())

	_, span := GetTracer().Start(context.Background(), "comic.process")
	assert.False(t, span.SpanContext().IsSampled())
	span.End()

	assert.Empty(t, recorder.Ended())
}
