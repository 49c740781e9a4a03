// Package observability provides OpenTelemetry-based tracing, metrics, and
// structured logging for the timelod commands.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"
)

// AppMode identifies how the binary was launched.
type AppMode string

const (
	// ModeCLI is the one-shot command mode (aggregate, validate).
	ModeCLI AppMode = "cli"
	// ModeSweep is the long-running sweep mode that may serve diagnostics.
	ModeSweep AppMode = "sweep"
)

const (
	defaultServiceName     = "timelod"
	defaultShutdownTimeout = 5 * time.Second
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName, ServiceVersion and Environment become resource
	// attributes and log fields. Empty version and environment are omitted.
	ServiceName    string
	ServiceVersion string
	Environment    string

	Mode AppMode

	Export   ExportConfig
	Sampling SamplingConfig
	Log      LogConfig

	// Prometheus attaches a scrape reader to the meter provider and exposes
	// its handler in Providers.MetricsHandler.
	Prometheus bool

	// TraceVerbose keeps per-pass render spans. When false only frame
	// spans are exported.
	TraceVerbose bool

	// ShutdownTimeout bounds the final flush.
	ShutdownTimeout time.Duration
}

// ExportConfig addresses an OTLP gRPC collector.
type ExportConfig struct {
	// Endpoint is the collector address, e.g. "localhost:4317".
	// Empty disables OTLP export.
	Endpoint string
	Headers  map[string]string
	Insecure bool
}

// Enabled reports whether OTLP export is configured.
func (e ExportConfig) Enabled() bool {
	return e.Endpoint != ""
}

// SamplingConfig selects the trace sampler. OTEL_TRACES_SAMPLER overrides
// Ratio but not Always.
type SamplingConfig struct {
	Always bool
	Ratio  float64
}

// LogConfig controls the slog handler built by Init.
type LogConfig struct {
	Level slog.Level
	JSON  bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns a Config with defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:     defaultServiceName,
		Mode:            ModeCLI,
		Log:             LogConfig{Level: slog.LevelInfo, Output: os.Stderr},
		ShutdownTimeout: defaultShutdownTimeout,
	}
}
