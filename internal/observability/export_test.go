package observability

import (
	"context"

	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// BuildResourceForTest exposes buildResource for testing.
func BuildResourceForTest(cfg Config) (*resource.Resource, error) {
	return buildResource(cfg)
}

// SampledForTest reports whether one span started under the sampler selected
// for cfg reaches an exporter.
func SampledForTest(cfg SamplingConfig) bool {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(selectSampler(cfg)),
	)

	_, span := tp.Tracer("check").Start(context.Background(), "check")
	span.End()

	exported := len(exporter.GetSpans()) > 0

	if err := tp.Shutdown(context.Background()); err != nil {
		return false
	}

	return exported
}
