package pipeline

import (
	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/statecache"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Transform maps state-normalized X coordinates into window-normalized ones:
// x' = x*ScaleX + OffsetX. The window spans [0, 1] after the transform.
type Transform struct {
	ScaleX  float64
	OffsetX float64
}

// Apply transforms one state-normalized coordinate.
func (t Transform) Apply(x float32) float64 {
	return float64(x)*t.ScaleX + t.OffsetX
}

// PassOutput is what one pass produced for a frame.
type PassOutput struct {
	Name    string
	State   any
	Batches []*lod.Batch
}

// Frame is the plain-data result of one Render call.
type Frame struct {
	Slot   statecache.Key
	State  timeline.Span
	Window timeline.Span
	From   int
	To     int
	Mode   lod.Mode

	Passes []PassOutput
	// RowOffsets holds the top of every row in the active layout, in units
	// of the row height list; the final entry is the total height.
	RowOffsets []float32

	ModelDirty  bool
	RowsDirty   bool
	WindowMoved bool
	Transform   Transform
}

// Batches returns the batches of every pass in pass order.
func (f *Frame) Batches() []*lod.Batch {
	var out []*lod.Batch

	for _, p := range f.Passes {
		out = append(out, p.Batches...)
	}

	return out
}

// Pass returns the output of the named pass.
func (f *Frame) Pass(name string) (PassOutput, bool) {
	for _, p := range f.Passes {
		if p.Name == name {
			return p, true
		}
	}

	return PassOutput{}, false
}

// Primitives returns the number of primitives across all batches.
func (f *Frame) Primitives() int {
	n := 0

	for _, b := range f.Batches() {
		n += len(b.Primitives)
	}

	return n
}

func newTransform(state, window timeline.Span) Transform {
	wd := window.Duration()
	if wd <= 0 {
		return Transform{ScaleX: 1}
	}

	return Transform{
		ScaleX:  float64(state.Duration()) / float64(wd),
		OffsetX: float64(state.Start-window.Start) / float64(wd),
	}
}

// rowOffsets accumulates heights for rows rows. Missing heights count as 1.
func rowOffsets(heights []float32, rows int) []float32 {
	out := make([]float32, rows+1)

	for r := range rows {
		h := float32(1)
		if r < len(heights) {
			h = heights[r]
		}

		out[r+1] = out[r] + h
	}

	return out
}
