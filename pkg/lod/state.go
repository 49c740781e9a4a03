package lod

import (
	"slices"

	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// row holds the primitives of one row in one layout. The last primitive is
// the open accumulator that later intervals may still merge into.
type row struct {
	prims   []Primitive
	batches []*Batch
	// dirty is the first primitive whose batch must be repacked.
	dirty int
}

func (r *row) touch(i int) {
	r.dirty = min(r.dirty, i)
}

// rowAt returns row index r of rows, growing the slice as needed.
func rowAt(rows *[]*row, r int) *row {
	for len(*rows) <= r {
		*rows = append(*rows, nil)
	}

	if (*rows)[r] == nil {
		(*rows)[r] = &row{}
	}

	return (*rows)[r]
}

// State is the aggregation result for one span and a covered index range.
// It is owned by the caller and updated in place by Aggregator.Update.
type State struct {
	span     timeline.Span
	from, to int
	config   mergeConfig
	rows     [modeCount][]*row

	perBatch int
	material Material

	rebuilds   int
	extensions int
	reuses     int
}

// Stats summarizes a state.
type Stats struct {
	Covered    int
	Primitives [modeCount]int
	Batches    [modeCount]int
	Merging    [modeCount]bool
	Rebuilds   int
	Extensions int
	Reuses     int
}

func newState(span timeline.Span, opts Options) *State {
	return &State{
		span:     span,
		perBatch: opts.PrimitivesPerBatch(),
		material: opts.Material,
	}
}

// Span returns the time span vertices are normalized to.
func (s *State) Span() timeline.Span {
	return s.span
}

// Covered returns the aggregated index range [from, to).
func (s *State) Covered() (from, to int) {
	return s.from, s.to
}

// Merging reports whether mode m merges and at which distance threshold.
func (s *State) Merging(m Mode) (enabled bool, threshold int64) {
	return s.config.enabled[m], s.config.threshold[m]
}

// RowCount returns the number of rows with primitives in mode m.
func (s *State) RowCount(m Mode) int {
	return len(s.rows[m])
}

// RowBatches returns the batches of one row.
func (s *State) RowBatches(m Mode, r int) []*Batch {
	if r < 0 || r >= len(s.rows[m]) || s.rows[m][r] == nil {
		return nil
	}

	return s.rows[m][r].batches
}

// Batches returns every batch of mode m in row order.
func (s *State) Batches(m Mode) []*Batch {
	var out []*Batch

	for _, r := range s.rows[m] {
		if r != nil {
			out = append(out, r.batches...)
		}
	}

	return out
}

// Primitives returns every primitive of mode m in row order.
func (s *State) Primitives(m Mode) []Primitive {
	var out []Primitive

	for _, r := range s.rows[m] {
		if r != nil {
			out = append(out, r.prims...)
		}
	}

	return out
}

// Stats returns a summary of the state.
func (s *State) Stats() Stats {
	st := Stats{
		Covered:    s.to - s.from,
		Merging:    s.config.enabled,
		Rebuilds:   s.rebuilds,
		Extensions: s.extensions,
		Reuses:     s.reuses,
	}

	for _, m := range Modes {
		for _, r := range s.rows[m] {
			if r != nil {
				st.Primitives[m] += len(r.prims)
				st.Batches[m] += len(r.batches)
			}
		}
	}

	return st
}

// pack rebuilds the batches of every dirty row from the batch holding its
// first dirty primitive. A trailing batch with room left is always repacked
// so appended primitives fill it. Earlier batches keep their identity.
func (s *State) pack() {
	for _, m := range Modes {
		for index, r := range s.rows[m] {
			if r == nil || r.dirty >= len(r.prims) {
				continue
			}

			keep, lo := 0, 0

			for keep < len(r.batches) {
				n := len(r.batches[keep].Primitives)
				if lo+n > r.dirty || (keep == len(r.batches)-1 && n < s.perBatch) {
					break
				}

				lo += n
				keep++
			}

			r.batches = append(slices.Clip(r.batches[:keep]), s.chunk(m, index, r.prims[lo:])...)
			r.dirty = len(r.prims)
		}
	}
}

// chunk packs prims into fresh batches of at most perBatch primitives.
func (s *State) chunk(m Mode, index int, prims []Primitive) []*Batch {
	var out []*Batch

	for lo := 0; lo < len(prims); lo += s.perBatch {
		hi := min(lo+s.perBatch, len(prims))
		out = append(out, NewQuadBatch(m, index, s.material, s.span, prims[lo:hi]))
	}

	return out
}
