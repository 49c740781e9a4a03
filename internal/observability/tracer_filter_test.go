package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/timelod/internal/observability"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
)

func newTestProvider() (*tracetest.InMemoryExporter, trace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	return exporter, tp
}

// TestFilteringProvider_SuppressesPassSpans verifies that per-pass spans are
// dropped while frame spans pass through.
func TestFilteringProvider_SuppressesPassSpans(t *testing.T) {
	t.Parallel()

	exporter, base := newTestProvider()
	tracer := observability.NewFilteringTracerProvider(base).Tracer("timelod")

	ctx, frame := tracer.Start(context.Background(), pipeline.SpanRender)
	_, pass := tracer.Start(ctx, pipeline.SpanPassPrefix+"items")
	pass.End()
	frame.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, pipeline.SpanRender, spans[0].Name)
}

// TestFilteringProvider_SuppressedSpanKeepsParent verifies that a span
// started under a suppressed one still records its context parent.
func TestFilteringProvider_SuppressedSpanKeepsParent(t *testing.T) {
	t.Parallel()

	exporter, base := newTestProvider()
	tracer := observability.NewFilteringTracerProvider(base).Tracer("timelod")

	ctx, frame := tracer.Start(context.Background(), pipeline.SpanRender)
	passCtx, pass := tracer.Start(ctx, pipeline.SpanPassPrefix+"notes")
	_, child := tracer.Start(passCtx, "timelod.export")
	child.End()
	pass.End()
	frame.End()

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
}

// TestFilteringProvider_OtherTracers verifies that tracer names are not
// filtered.
func TestFilteringProvider_OtherTracers(t *testing.T) {
	t.Parallel()

	exporter, base := newTestProvider()
	tracer := observability.NewFilteringTracerProvider(base).Tracer("timelod.traceload")

	_, span := tracer.Start(context.Background(), "timelod.traceload.decode")
	span.End()

	assert.Len(t, exporter.GetSpans(), 1)
}
