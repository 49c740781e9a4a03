package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/timelod/internal/observability"
	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/window"
)

// Config is the top-level configuration struct for timelod.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	LOD           LODConfig           `mapstructure:"lod"`
	Window        WindowConfig        `mapstructure:"window"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// LODConfig holds aggregation knobs.
type LODConfig struct {
	MaxPrimitivesPerBatch int `mapstructure:"max_primitives_per_batch"`
	TriggerCount          int `mapstructure:"trigger_count"`
	PerturbationModulus   int `mapstructure:"perturbation_modulus"`
	VertexCeiling         int `mapstructure:"vertex_ceiling"`
}

// WindowConfig holds window controller knobs.
type WindowConfig struct {
	MaxZoomFactor int64         `mapstructure:"max_zoom_factor"`
	MinRange      int64         `mapstructure:"min_range"`
	EaseDelay     time.Duration `mapstructure:"ease_delay"`
	EaseInterval  time.Duration `mapstructure:"ease_interval"`
}

// CacheConfig holds render state cache settings.
type CacheConfig struct {
	Capacity int `mapstructure:"capacity"`
}

// LoggingConfig holds slog settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	Environment     string        `mapstructure:"environment"`
	OTLPEndpoint    string        `mapstructure:"otlp_endpoint"`
	OTLPHeaders     string        `mapstructure:"otlp_headers"`
	OTLPInsecure    bool          `mapstructure:"otlp_insecure"`
	SampleRatio     float64       `mapstructure:"sample_ratio"`
	DebugTrace      bool          `mapstructure:"debug_trace"`
	TraceVerbose    bool          `mapstructure:"trace_verbose"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Sentinel errors for configuration validation.
var (
	// ErrInvalidMaxPrimitives indicates a negative per-batch primitive cap.
	ErrInvalidMaxPrimitives = errors.New("lod.max_primitives_per_batch must be non-negative")
	// ErrInvalidPerturbation indicates a negative perturbation modulus.
	ErrInvalidPerturbation = errors.New("lod.perturbation_modulus must be non-negative")
	// ErrInvalidVertexCeiling indicates a vertex ceiling outside uint16 indexing.
	ErrInvalidVertexCeiling = errors.New("lod.vertex_ceiling must be between 0 and 65535")
	// ErrInvalidZoomFactor indicates a zoom factor below 1.
	ErrInvalidZoomFactor = errors.New("window.max_zoom_factor must be at least 1")
	// ErrInvalidMinRange indicates a minimum range below 1.
	ErrInvalidMinRange = errors.New("window.min_range must be at least 1")
	// ErrInvalidEasing indicates a negative easing delay or interval.
	ErrInvalidEasing = errors.New("window.ease_delay and window.ease_interval must be non-negative")
	// ErrInvalidCacheCapacity indicates a negative cache capacity.
	ErrInvalidCacheCapacity = errors.New("cache.capacity must be non-negative")
	// ErrInvalidLogLevel indicates an unknown slog level name.
	ErrInvalidLogLevel = errors.New("logging.level must be debug, info, warn or error")
	// ErrInvalidSampleRatio indicates a sample ratio outside [0, 1].
	ErrInvalidSampleRatio = errors.New("observability.sample_ratio must be between 0 and 1")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if err := c.validateLOD(); err != nil {
		return err
	}

	if err := c.validateWindow(); err != nil {
		return err
	}

	if c.Cache.Capacity < 0 {
		return ErrInvalidCacheCapacity
	}

	if _, err := c.LogLevel(); err != nil {
		return err
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return ErrInvalidSampleRatio
	}

	return nil
}

func (c *Config) validateLOD() error {
	if c.LOD.MaxPrimitivesPerBatch < 0 {
		return ErrInvalidMaxPrimitives
	}

	if c.LOD.PerturbationModulus < 0 {
		return ErrInvalidPerturbation
	}

	if c.LOD.VertexCeiling < 0 || c.LOD.VertexCeiling > lod.DefaultVertexCeiling {
		return ErrInvalidVertexCeiling
	}

	return nil
}

func (c *Config) validateWindow() error {
	if c.Window.MaxZoomFactor < 1 {
		return ErrInvalidZoomFactor
	}

	if c.Window.MinRange < 1 {
		return ErrInvalidMinRange
	}

	if c.Window.EaseDelay < 0 || c.Window.EaseInterval < 0 {
		return ErrInvalidEasing
	}

	return nil
}

// LogLevel parses the configured slog level.
func (c *Config) LogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Logging.Level)
	}

	return level, nil
}

// LODOptions converts the lod section into aggregator options.
func (c *Config) LODOptions(logger *slog.Logger) lod.Options {
	return lod.Options{
		MaxPrimitivesPerBatch: c.LOD.MaxPrimitivesPerBatch,
		TriggerCount:          c.LOD.TriggerCount,
		PerturbationModulus:   c.LOD.PerturbationModulus,
		VertexCeiling:         c.LOD.VertexCeiling,
		Material:              lod.MaterialItems,
		Logger:                logger,
	}
}

// WindowOptions converts the window section into controller options.
func (c *Config) WindowOptions() []window.Option {
	return []window.Option{
		window.WithMaxZoomFactor(c.Window.MaxZoomFactor),
		window.WithMinRange(c.Window.MinRange),
		window.WithEasing(c.Window.EaseDelay, c.Window.EaseInterval),
	}
}

// ObservabilityConfig builds the telemetry config for a command run.
func (c *Config) ObservabilityConfig(version string, mode observability.AppMode) observability.Config {
	cfg := observability.DefaultConfig()

	cfg.ServiceVersion = version
	cfg.Mode = mode
	cfg.Environment = c.Observability.Environment
	cfg.Export = observability.ExportConfig{
		Endpoint: c.Observability.OTLPEndpoint,
		Headers:  observability.ParseHeaders(c.Observability.OTLPHeaders),
		Insecure: c.Observability.OTLPInsecure,
	}
	cfg.Sampling = observability.SamplingConfig{
		Always: c.Observability.DebugTrace,
		Ratio:  c.Observability.SampleRatio,
	}
	cfg.TraceVerbose = c.Observability.TraceVerbose
	cfg.Log.JSON = c.Logging.JSON

	if level, err := c.LogLevel(); err == nil {
		cfg.Log.Level = level
	}

	if c.Observability.ShutdownTimeout > 0 {
		cfg.ShutdownTimeout = c.Observability.ShutdownTimeout
	}

	return cfg
}
