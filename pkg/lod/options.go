// Package lod turns a contiguous range of timeline intervals into per-row
// geometry batches, merging the closest-spaced neighbors first so that the
// primitive count stays under a hard cap.
//
// Every interval is laid out twice, once per row layout (expanded and
// collapsed). Each layout picks its own merge threshold: the distance at rank
// count-MaxPrimitivesPerBatch among all visible distances. Merging only runs
// when the covered range exceeds TriggerCount; below it every interval gets
// its own primitive.
package lod

import (
	"log/slog"
	"math"
)

// Defaults for Options.
const (
	DefaultMaxPrimitivesPerBatch = 1 << 20
	DefaultTriggerCount          = 1 << 20
	DefaultPerturbationModulus   = 256
	DefaultVertexCeiling         = math.MaxUint16
)

// Indexed quad geometry.
const (
	VerticesPerPrimitive = 4
	IndicesPerPrimitive  = 6
)

// Mode selects a row layout.
type Mode int

// Row layouts.
const (
	Expanded Mode = iota
	Collapsed

	modeCount
)

// Modes lists every row layout in emission order.
var Modes = [...]Mode{Expanded, Collapsed}

// String returns the layout name.
func (m Mode) String() string {
	switch m {
	case Expanded:
		return "expanded"
	case Collapsed:
		return "collapsed"
	default:
		return "unknown"
	}
}

// Format describes the vertex layout of a batch.
type Format int

// FormatIndexedQuads is four vertices and six uint16 indices per primitive.
const FormatIndexedQuads Format = iota

// Material is an opaque handle telling the renderer how to draw a batch.
type Material int

// Materials used by the render passes.
const (
	MaterialItems Material = iota
	MaterialSelection
	MaterialNotes
)

// Options configures an Aggregator. Non-positive fields take their defaults.
type Options struct {
	MaxPrimitivesPerBatch int
	// TriggerCount of zero merges every range; only negative values default.
	TriggerCount        int
	PerturbationModulus int
	// VertexCeiling is capped at DefaultVertexCeiling so indices fit uint16.
	VertexCeiling int
	Material      Material
	Logger        *slog.Logger
}

// DefaultOptions returns the default aggregation options.
func DefaultOptions() Options {
	return Options{
		MaxPrimitivesPerBatch: DefaultMaxPrimitivesPerBatch,
		TriggerCount:          DefaultTriggerCount,
		PerturbationModulus:   DefaultPerturbationModulus,
		VertexCeiling:         DefaultVertexCeiling,
		Material:              MaterialItems,
		Logger:                slog.Default(),
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()

	if o.MaxPrimitivesPerBatch <= 0 {
		o.MaxPrimitivesPerBatch = d.MaxPrimitivesPerBatch
	}

	if o.TriggerCount < 0 {
		o.TriggerCount = d.TriggerCount
	}

	if o.PerturbationModulus <= 0 {
		o.PerturbationModulus = d.PerturbationModulus
	}

	if o.VertexCeiling <= 0 || o.VertexCeiling > d.VertexCeiling {
		o.VertexCeiling = d.VertexCeiling
	}

	if o.Logger == nil {
		o.Logger = d.Logger
	}

	return o
}

// PrimitivesPerBatch returns the effective per-batch primitive limit.
func (o Options) PrimitivesPerBatch() int {
	return max(1, min(o.MaxPrimitivesPerBatch, o.VertexCeiling/VerticesPerPrimitive))
}
