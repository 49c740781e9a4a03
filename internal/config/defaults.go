// Package config loads timelod settings from YAML, environment variables and
// defaults.
package config

import (
	"time"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/window"
)

// LOD defaults.
const (
	DefaultLODMaxPrimitivesPerBatch = lod.DefaultMaxPrimitivesPerBatch
	DefaultLODTriggerCount          = lod.DefaultTriggerCount
	DefaultLODPerturbationModulus   = lod.DefaultPerturbationModulus
	DefaultLODVertexCeiling         = lod.DefaultVertexCeiling
)

// Window defaults.
const (
	DefaultWindowMaxZoomFactor = window.DefaultMaxZoomFactor
	DefaultWindowMinRange      = window.DefaultMinRange
	DefaultWindowEaseDelay     = window.DefaultEaseDelay
	DefaultWindowEaseInterval  = window.DefaultEaseInterval
)

// Cache defaults. Zero capacity keeps every slot.
const (
	DefaultCacheCapacity = 0
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)

// Observability defaults.
const (
	DefaultObservabilityOTLPEndpoint = ""
	DefaultObservabilityOTLPInsecure = false
	DefaultObservabilitySampleRatio  = 0.0
	DefaultObservabilityDebugTrace   = false
	DefaultObservabilityTraceVerbose = false
	DefaultObservabilityShutdown     = 5 * time.Second
)
