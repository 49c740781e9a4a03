// Package pipeline sequences independent render passes over a timeline model
// and tracks which of its inputs changed between frames.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/statecache"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
	"github.com/Sumatoshi-tech/timelod/pkg/window"
)

// tracerName is the default OTel tracer name for the pipeline package.
const tracerName = "timelod"

// Span names.
const (
	SpanRender     = "timelod.render"
	SpanPassPrefix = "timelod.pass."
)

// Sentinel errors.
var (
	ErrNilModel  = errors.New("pipeline: nil model")
	ErrNotNested = errors.New("pipeline: model not nested")
	ErrNoPasses  = errors.New("pipeline: no passes")
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPasses replaces the default pass list.
func WithPasses(passes ...Pass) Option {
	return func(p *Pipeline) {
		p.passes = passes
	}
}

// WithLODOptions sets the options of the default items pass.
func WithLODOptions(opts lod.Options) Option {
	return func(p *Pipeline) {
		p.lodOpts = opts
	}
}

// WithCache sets the render state cache.
func WithCache(c *statecache.Cache) Option {
	return func(p *Pipeline) {
		p.cache = c
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(p *Pipeline) {
		p.tracer = tracer
	}
}

// Pipeline renders frames of one model. It is not safe for concurrent use.
type Pipeline struct {
	model   *timeline.Model
	passes  []Pass
	lodOpts lod.Options
	cache   *statecache.Cache
	logger  *slog.Logger
	tracer  trace.Tracer

	expanded   bool
	rowHeights []float32
	selected   int
	notes      *Notes

	rendered     bool
	lastRevision uint64
	lastWindow   timeline.Span
	rowsChanged  bool
}

// New creates a pipeline over model. Without WithPasses it runs the items,
// selection and notes passes in that order.
func New(model *timeline.Model, opts ...Option) (*Pipeline, error) {
	if model == nil || model.Index == nil {
		return nil, ErrNilModel
	}

	p := &Pipeline{
		model:    model,
		lodOpts:  lod.DefaultOptions(),
		logger:   slog.Default(),
		expanded: true,
		selected: timeline.NoIndex,
		notes:    NewNotes(),
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.passes == nil {
		if p.lodOpts.Logger == nil {
			p.lodOpts.Logger = p.logger
		}

		p.passes = []Pass{NewItemsPass(p.lodOpts), SelectionPass{}, NewNotesPass()}
	}

	if len(p.passes) == 0 {
		return nil, ErrNoPasses
	}

	if p.cache == nil {
		p.cache = statecache.New(statecache.WithLogger(p.logger))
	}

	if p.tracer == nil {
		p.tracer = otel.Tracer(tracerName)
	}

	return p, nil
}

// Cache returns the render state cache.
func (p *Pipeline) Cache() *statecache.Cache {
	return p.cache
}

// Notes returns the annotation collection drawn by NotesPass.
func (p *Pipeline) Notes() *Notes {
	return p.notes
}

// SetExpanded switches between the expanded and collapsed row layout.
func (p *Pipeline) SetExpanded(expanded bool) {
	if p.expanded != expanded {
		p.expanded = expanded
		p.rowsChanged = true
	}
}

// SetRowHeights sets per-row heights of the active layout.
func (p *Pipeline) SetRowHeights(heights []float32) {
	if !slices.Equal(p.rowHeights, heights) {
		p.rowHeights = slices.Clone(heights)
		p.rowsChanged = true
	}
}

// SetSelectedItem selects an item for the selection pass. NoIndex clears it.
func (p *Pipeline) SetSelectedItem(item int) {
	p.selected = item
}

// Mode returns the active row layout.
func (p *Pipeline) Mode() lod.Mode {
	if p.expanded {
		return lod.Expanded
	}

	return lod.Collapsed
}

// Render runs every pass for the current window of win and returns the frame.
// Window movement inside an already covered slot reuses the cached states.
func (p *Pipeline) Render(ctx context.Context, win *window.Controller) (*Frame, error) {
	if p.model.Count() > 0 && !p.model.Nested() {
		return nil, ErrNotNested
	}

	ctx, span := p.tracer.Start(ctx, SpanRender)
	defer span.End()

	revision := p.model.Revision()
	modelDirty := !p.rendered || revision != p.lastRevision
	ws := win.Window()

	slot := p.cache.Lookup(win.Trace(), ws, revision)
	from, to := p.visibleRange(ws)

	frame := &Frame{
		Slot:        slot.Key,
		State:       slot.Span(),
		Window:      ws,
		From:        from,
		To:          to,
		Mode:        p.Mode(),
		ModelDirty:  modelDirty,
		RowsDirty:   p.rowsChanged,
		WindowMoved: !p.rendered || ws != p.lastWindow,
		Transform:   newTransform(slot.Span(), ws),
		Passes:      make([]PassOutput, 0, len(p.passes)),
	}

	pc := &Context{
		Source:       p.model,
		State:        slot.Span(),
		Window:       ws,
		From:         from,
		To:           to,
		SelectedItem: p.selected,
		Notes:        p.notes,
		ModelDirty:   modelDirty,
	}

	for i, pass := range p.passes {
		_, passSpan := p.tracer.Start(ctx, SpanPassPrefix+pass.Name())

		state := pass.Update(pc, slot.State(i))
		slot.SetState(i, state)

		out := PassOutput{Name: pass.Name(), State: state}
		if b, ok := state.(Batcher); ok {
			out.Batches = b.Batches(frame.Mode)
		}

		passSpan.SetAttributes(attribute.Int("pass.batches", len(out.Batches)))
		passSpan.End()

		frame.Passes = append(frame.Passes, out)
	}

	rows := p.model.ExpandedRowCount()
	if frame.Mode == lod.Collapsed {
		rows = p.model.CollapsedRowCount()
	}

	frame.RowOffsets = rowOffsets(p.rowHeights, rows)

	span.SetAttributes(
		attribute.Int("render.from", from),
		attribute.Int("render.to", to),
		attribute.Int("render.slot.level", slot.Key.Level),
		attribute.Bool("render.model_dirty", modelDirty),
	)

	p.logger.DebugContext(ctx, "pipeline: frame rendered",
		"from", from, "to", to, "level", slot.Key.Level, "offset", slot.Key.Offset,
		"model_dirty", modelDirty, "rows_dirty", frame.RowsDirty)

	p.rendered = true
	p.lastRevision = revision
	p.lastWindow = ws
	p.rowsChanged = false

	return frame, nil
}

// visibleRange returns [FirstIndex(start), LastIndex(end)+1) of the window,
// or an empty range when nothing intersects it.
func (p *Pipeline) visibleRange(ws timeline.Span) (from, to int) {
	if p.model.Count() == 0 {
		return 0, 0
	}

	from = p.model.FirstIndex(ws.Start)
	if from == timeline.NoIndex {
		return 0, 0
	}

	to = p.model.LastIndex(ws.End) + 1
	if to <= from {
		return from, from
	}

	return from, to
}
