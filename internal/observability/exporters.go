package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

// Standard OTel sampler variables.
const (
	envTracesSampler    = "OTEL_TRACES_SAMPLER"
	envTracesSamplerArg = "OTEL_TRACES_SAMPLER_ARG"
)

// envSamplers maps OTEL_TRACES_SAMPLER values to samplers. The argument is
// the parsed OTEL_TRACES_SAMPLER_ARG ratio.
var envSamplers = map[string]func(ratio float64) sdktrace.Sampler{
	"always_on":  func(float64) sdktrace.Sampler { return sdktrace.AlwaysSample() },
	"always_off": func(float64) sdktrace.Sampler { return sdktrace.NeverSample() },
	"traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.TraceIDRatioBased(r)
	},
	"parentbased_always_on": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	},
	"parentbased_always_off": func(float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.NeverSample())
	},
	"parentbased_traceidratio": func(r float64) sdktrace.Sampler {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(r))
	},
}

type shutdownFunc func(ctx context.Context) error

func noopShutdown(context.Context) error { return nil }

// ScrapeEndpoint pairs a Prometheus scrape handler with the reader that
// feeds it. Instruments are collected once Reader is attached to a
// MeterProvider.
type ScrapeEndpoint struct {
	Handler http.Handler
	Reader  sdkmetric.Reader
}

// NewScrapeEndpoint creates a Prometheus exporter on a private registry.
func NewScrapeEndpoint() (*ScrapeEndpoint, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	return &ScrapeEndpoint{
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Reader:  exporter,
	}, nil
}

func newTracerProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (trace.TracerProvider, shutdownFunc, error) {
	if !cfg.Export.Enabled() {
		return nooptrace.NewTracerProvider(), noopShutdown, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Export.Endpoint)}

	if cfg.Export.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if len(cfg.Export.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Export.Headers))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(selectSampler(cfg.Sampling)),
	)

	return tp, tp.Shutdown, nil
}

// newMeterProvider attaches a scrape reader and/or an OTLP periodic reader.
// With neither, the provider is a no-op and the endpoint is nil.
func newMeterProvider(
	ctx context.Context, cfg Config, res *resource.Resource,
) (metric.MeterProvider, *ScrapeEndpoint, shutdownFunc, error) {
	if !cfg.Export.Enabled() && !cfg.Prometheus {
		return noopmetric.NewMeterProvider(), nil, noopShutdown, nil
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	var scrape *ScrapeEndpoint

	if cfg.Prometheus {
		ep, err := NewScrapeEndpoint()
		if err != nil {
			return nil, nil, nil, err
		}

		scrape = ep
		opts = append(opts, sdkmetric.WithReader(ep.Reader))
	}

	if cfg.Export.Enabled() {
		exporterOpts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Export.Endpoint)}

		if cfg.Export.Insecure {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithInsecure())
		}

		if len(cfg.Export.Headers) > 0 {
			exporterOpts = append(exporterOpts, otlpmetricgrpc.WithHeaders(cfg.Export.Headers))
		}

		exporter, err := otlpmetricgrpc.New(ctx, exporterOpts...)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("create metric exporter: %w", err)
		}

		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
	}

	mp := sdkmetric.NewMeterProvider(opts...)

	return mp, scrape, mp.Shutdown, nil
}

func selectSampler(cfg SamplingConfig) sdktrace.Sampler {
	if cfg.Always {
		return sdktrace.AlwaysSample()
	}

	if build, ok := envSamplers[os.Getenv(envTracesSampler)]; ok {
		return build(parseRatio(os.Getenv(envTracesSamplerArg)))
	}

	if cfg.Ratio > 0 {
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.Ratio))
	}

	return sdktrace.ParentBased(sdktrace.AlwaysSample())
}

// parseRatio parses a sampler ratio, falling back to 1 for empty or
// malformed input.
func parseRatio(s string) float64 {
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 1
	}

	return ratio
}

// ParseHeaders parses "key=value,key=value" into a header map. Pairs without
// '=' are skipped. Returns nil when nothing parses.
func ParseHeaders(raw string) map[string]string {
	var out map[string]string

	for pair := range strings.SplitSeq(raw, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}

		if out == nil {
			out = make(map[string]string)
		}

		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}

	return out
}
