package pipeline

import (
	"maps"
	"slices"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Names of the default passes.
const (
	PassItems     = "items"
	PassSelection = "selection"
	PassNotes     = "notes"
)

// Context is the per-frame input every pass receives.
type Context struct {
	Source timeline.Source
	// State is the span of the cache slot; vertices are normalized to it.
	State  timeline.Span
	Window timeline.Span
	// From and To bound the intervals relevant to the window.
	From int
	To   int

	SelectedItem int
	Notes        *Notes
	ModelDirty   bool
}

// Pass is one independent aggregation step. Update receives the state the
// pass returned for the same cache slot last time, or nil, and returns the
// new state. The pipeline never looks inside states.
type Pass interface {
	Name() string
	Update(c *Context, prev any) any
}

// Batcher is implemented by pass states that emit geometry.
type Batcher interface {
	Batches(m lod.Mode) []*lod.Batch
}

// ItemsPass aggregates the visible intervals with the LOD aggregator.
type ItemsPass struct {
	agg *lod.Aggregator
}

// NewItemsPass creates the primary item pass.
func NewItemsPass(opts lod.Options) *ItemsPass {
	opts.Material = lod.MaterialItems

	return &ItemsPass{agg: lod.New(opts)}
}

// Name implements Pass.
func (p *ItemsPass) Name() string { return PassItems }

// Update implements Pass.
func (p *ItemsPass) Update(c *Context, prev any) any {
	state, _ := prev.(*lod.State)
	if c.ModelDirty {
		state = nil
	}

	return p.agg.Update(c.Source, c.State, state, c.From, c.To)
}

// highlight builds a full-height primitive for item clipped to span.
func highlight(src timeline.Source, span timeline.Span, item int) (lod.Primitive, bool) {
	start := max(span.Start, src.StartTime(item))
	end := min(span.End, src.StartTime(item)+src.Duration(item))

	if start > end {
		return lod.Primitive{}, false
	}

	return lod.Primitive{
		Left:  start,
		Right: end,
		Color: src.Color(item),
		Group: src.GroupID(item),
		First: item,
		Last:  item,
	}, true
}

// SelectionState is the output of SelectionPass.
type SelectionState struct {
	Item    int
	batches [2][]*lod.Batch
}

// Batches implements Batcher.
func (s *SelectionState) Batches(m lod.Mode) []*lod.Batch {
	return s.batches[m]
}

// SelectionPass draws a highlight over the selected item.
type SelectionPass struct{}

// Name implements Pass.
func (SelectionPass) Name() string { return PassSelection }

// Update implements Pass.
func (SelectionPass) Update(c *Context, prev any) any {
	if old, ok := prev.(*SelectionState); ok && !c.ModelDirty && old.Item == c.SelectedItem {
		return old
	}

	state := &SelectionState{Item: c.SelectedItem}
	if c.SelectedItem < 0 || c.SelectedItem >= c.Source.Count() {
		return state
	}

	prim, ok := highlight(c.Source, c.State, c.SelectedItem)
	if !ok {
		return state
	}

	for _, m := range lod.Modes {
		row := c.Source.ExpandedRow(c.SelectedItem)
		if m == lod.Collapsed {
			row = c.Source.CollapsedRow(c.SelectedItem)
		}

		state.batches[m] = []*lod.Batch{
			lod.NewQuadBatch(m, row, lod.MaterialSelection, c.State, []lod.Primitive{prim}),
		}
	}

	return state
}

// NotesState is the output of NotesPass.
type NotesState struct {
	revision uint64
	from, to int
	markers  int
	batches  [2][]*lod.Batch
}

// Markers returns the number of annotated items drawn.
func (s *NotesState) Markers() int {
	return s.markers
}

// Batches implements Batcher.
func (s *NotesState) Batches(m lod.Mode) []*lod.Batch {
	return s.batches[m]
}

// NotesPass draws a marker over every annotated item in the frame range.
type NotesPass struct {
	perBatch int
}

// NewNotesPass creates the annotation pass.
func NewNotesPass() *NotesPass {
	return &NotesPass{perBatch: lod.DefaultOptions().PrimitivesPerBatch()}
}

// Name implements Pass.
func (p *NotesPass) Name() string { return PassNotes }

// Update implements Pass.
func (p *NotesPass) Update(c *Context, prev any) any {
	var revision uint64
	if c.Notes != nil {
		revision = c.Notes.Revision()
	}

	if old, ok := prev.(*NotesState); ok && !c.ModelDirty &&
		old.revision == revision && old.from == c.From && old.to == c.To {
		return old
	}

	state := &NotesState{revision: revision, from: c.From, to: c.To}
	if c.Notes == nil {
		return state
	}

	var rows [2]map[int][]lod.Primitive

	seen := make(map[int]bool)

	for i := range c.Notes.Len() {
		item := c.Notes.At(i).Item
		if item < c.From || item >= c.To || seen[item] {
			continue
		}

		prim, ok := highlight(c.Source, c.State, item)
		if !ok {
			continue
		}

		seen[item] = true
		state.markers++

		for _, m := range lod.Modes {
			if rows[m] == nil {
				rows[m] = make(map[int][]lod.Primitive)
			}

			row := c.Source.ExpandedRow(item)
			if m == lod.Collapsed {
				row = c.Source.CollapsedRow(item)
			}

			rows[m][row] = append(rows[m][row], prim)
		}
	}

	for _, m := range lod.Modes {
		for _, row := range slices.Sorted(maps.Keys(rows[m])) {
			prims := rows[m][row]
			for lo := 0; lo < len(prims); lo += p.perBatch {
				hi := min(lo+p.perBatch, len(prims))
				state.batches[m] = append(state.batches[m],
					lod.NewQuadBatch(m, row, lod.MaterialNotes, c.State, prims[lo:hi]))
			}
		}
	}

	return state
}
