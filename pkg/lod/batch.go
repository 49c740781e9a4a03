package lod

import (
	"slices"
	"sync/atomic"

	"github.com/Sumatoshi-tech/timelod/pkg/safeconv"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Primitive is one emitted rectangle covering one or more merged intervals.
// Times are absolute; Top is the row-relative upper edge in [0, 1] with the
// bottom edge always at 1.
type Primitive struct {
	Left  int64
	Right int64
	Top   float32
	Color timeline.RGB
	Group int32
	// First and Last are the source indices of the earliest and latest
	// merged interval.
	First int
	Last  int
}

// absorb extends p by a later primitive in the same row.
func (p *Primitive) absorb(q Primitive) {
	p.Right = max(p.Right, q.Right)
	p.Top = min(p.Top, q.Top)
	p.Last = q.Last
}

// placement returns the row-relative top edge of interval i. Both merge
// decisions and emission go through it.
func placement(src timeline.Source, i int) float32 {
	h := min(max(src.RelativeHeight(i), 0), 1)

	return 1 - h
}

// Vertex is one corner of a primitive. X is normalized to the state span,
// Y is row-relative.
type Vertex struct {
	X     float32
	Y     float32
	Color timeline.RGB
}

// Batch is a renderer-ready chunk of one row. A batch whose content did not
// change between updates keeps its pointer and ID.
type Batch struct {
	ID         uint64
	Mode       Mode
	Row        int
	Format     Format
	Material   Material
	Vertices   []Vertex
	Indices    []uint16
	Primitives []Primitive
}

var batchIDs atomic.Uint64

// NewQuadBatch packs primitives into an indexed quad batch with a fresh ID.
// Horizontal coordinates are normalized to span. The caller keeps the
// primitive count within the vertex ceiling.
func NewQuadBatch(m Mode, row int, material Material, span timeline.Span, prims []Primitive) *Batch {
	b := &Batch{
		ID:         batchIDs.Add(1),
		Mode:       m,
		Row:        row,
		Format:     FormatIndexedQuads,
		Material:   material,
		Vertices:   make([]Vertex, 0, len(prims)*VerticesPerPrimitive),
		Indices:    make([]uint16, 0, len(prims)*IndicesPerPrimitive),
		Primitives: slices.Clone(prims),
	}

	for k, p := range prims {
		left := normalize(p.Left, span)
		right := normalize(p.Right, span)

		b.Vertices = append(b.Vertices,
			Vertex{X: left, Y: p.Top, Color: p.Color},
			Vertex{X: right, Y: p.Top, Color: p.Color},
			Vertex{X: left, Y: 1, Color: p.Color},
			Vertex{X: right, Y: 1, Color: p.Color},
		)

		last := safeconv.MustIntToUint16(k*VerticesPerPrimitive + VerticesPerPrimitive - 1)
		base := last - (VerticesPerPrimitive - 1)

		b.Indices = append(b.Indices, base, base+1, base+2, base+2, base+1, last)
	}

	return b
}

// normalize maps t into [0, 1] relative to span.
func normalize(t int64, span timeline.Span) float32 {
	d := span.Duration()
	if d <= 0 {
		return 0
	}

	return float32(float64(t-span.Start) / float64(d))
}
