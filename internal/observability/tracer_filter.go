package observability

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/embedded"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// suppressedSpanPrefixes name the per-pass spans emitted for every frame.
var suppressedSpanPrefixes = []string{"timelod.pass."}

// filteringTracerProvider wraps a real TracerProvider and replaces per-pass
// render spans with no-op spans so that a sweep exports one span per frame.
type filteringTracerProvider struct {
	embedded.TracerProvider

	delegate trace.TracerProvider
	noop     trace.TracerProvider
	prefixes []string
}

// NewFilteringTracerProvider wraps delegate so that spans whose name starts
// with a suppressed prefix are dropped.
func NewFilteringTracerProvider(delegate trace.TracerProvider) trace.TracerProvider {
	return &filteringTracerProvider{
		delegate: delegate,
		noop:     nooptrace.NewTracerProvider(),
		prefixes: suppressedSpanPrefixes,
	}
}

// Tracer returns a filtering tracer for the given name.
func (f *filteringTracerProvider) Tracer(name string, opts ...trace.TracerOption) trace.Tracer {
	return &filteringTracer{
		delegate: f.delegate.Tracer(name, opts...),
		noop:     f.noop.Tracer(name, opts...),
		prefixes: f.prefixes,
	}
}

// filteringTracer returns noop spans for suppressed names.
type filteringTracer struct {
	embedded.Tracer

	delegate trace.Tracer
	noop     trace.Tracer
	prefixes []string
}

// Start creates a span, returning a noop span for suppressed names.
func (f *filteringTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	for _, p := range f.prefixes {
		if strings.HasPrefix(name, p) {
			return f.noop.Start(ctx, name, opts...)
		}
	}

	return f.delegate.Start(ctx, name, opts...)
}
