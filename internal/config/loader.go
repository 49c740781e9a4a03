package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const (
	// configName is searched as .timelod.yaml in CWD and $HOME.
	configName = ".timelod"
	configType = "yaml"

	// envPrefix maps window.ease_delay to TIMELOD_WINDOW_EASE_DELAY.
	envPrefix = "TIMELOD"
)

// defaults registers every key so AutomaticEnv can resolve it during
// Unmarshal even when no file sets it.
var defaults = map[string]any{
	"lod.max_primitives_per_batch": DefaultLODMaxPrimitivesPerBatch,
	"lod.trigger_count":            DefaultLODTriggerCount,
	"lod.perturbation_modulus":     DefaultLODPerturbationModulus,
	"lod.vertex_ceiling":           DefaultLODVertexCeiling,

	"window.max_zoom_factor": DefaultWindowMaxZoomFactor,
	"window.min_range":       DefaultWindowMinRange,
	"window.ease_delay":      DefaultWindowEaseDelay,
	"window.ease_interval":   DefaultWindowEaseInterval,

	"cache.capacity": DefaultCacheCapacity,

	"logging.level": DefaultLoggingLevel,
	"logging.json":  DefaultLoggingJSON,

	"observability.environment":      "",
	"observability.otlp_endpoint":    DefaultObservabilityOTLPEndpoint,
	"observability.otlp_headers":     "",
	"observability.otlp_insecure":    DefaultObservabilityOTLPInsecure,
	"observability.sample_ratio":     DefaultObservabilitySampleRatio,
	"observability.debug_trace":      DefaultObservabilityDebugTrace,
	"observability.trace_verbose":    DefaultObservabilityTraceVerbose,
	"observability.shutdown_timeout": DefaultObservabilityShutdown,
}

// LoadConfig loads configuration from file, env vars, and defaults, then
// validates it. An explicit configPath must exist; otherwise a missing
// .timelod.yaml leaves the defaults in place.
func LoadConfig(configPath string) (*Config, error) {
	v := newViper()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigType(configType)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}
