package lod

import (
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Aggregator builds and incrementally extends States.
type Aggregator struct {
	opts Options
}

// New creates an aggregator. Non-positive option fields take their defaults.
func New(opts Options) *Aggregator {
	return &Aggregator{opts: opts.withDefaults()}
}

// Options returns the effective options.
func (a *Aggregator) Options() Options {
	return a.opts
}

// Update aggregates [from, to) of src clipped to span and returns the state
// covering it. When prev was built for the same span it is extended in place
// so that the result equals a single run over the union of both ranges;
// otherwise a fresh state is built. Ranges already covered by prev return it
// unchanged.
func (a *Aggregator) Update(src timeline.Source, span timeline.Span, prev *State, from, to int) *State {
	from = max(from, 0)
	to = min(to, src.Count())

	if prev == nil || prev.span != span || prev.from >= prev.to {
		s := newState(span, a.opts)
		if from < to {
			a.fill(src, s, from, to)
		}

		return s
	}

	if from >= to || (from >= prev.from && to <= prev.to) {
		prev.reuses++

		return prev
	}

	return a.extend(src, prev, from, to)
}

// fill builds s from scratch over [from, to).
func (a *Aggregator) fill(src timeline.Source, s *State, from, to int) {
	d := computeDistances(src, s.span, from, to, a.opts.PerturbationModulus)

	s.config = configFor(d, to-from, a.opts)
	s.appendRange(src, d, &s.rows, from, to)
	s.from, s.to = from, to
	s.pack()
}

// extend grows s to cover the union of its range and [from, to).
func (a *Aggregator) extend(src timeline.Source, s *State, from, to int) *State {
	unionFrom := min(from, s.from)
	unionTo := max(to, s.to)

	d := computeDistances(src, s.span, unionFrom, unionTo, a.opts.PerturbationModulus)

	cfg := configFor(d, unionTo-unionFrom, a.opts)
	if cfg != s.config {
		a.opts.Logger.Debug("lod: merge threshold changed, rebuilding",
			"from", unionFrom, "to", unionTo,
			"expanded_threshold", cfg.threshold[Expanded],
			"collapsed_threshold", cfg.threshold[Collapsed])

		fresh := newState(s.span, a.opts)
		fresh.rebuilds = s.rebuilds + 1
		fresh.extensions = s.extensions
		fresh.reuses = s.reuses
		fresh.config = cfg
		fresh.appendRange(src, d, &fresh.rows, unionFrom, unionTo)
		fresh.from, fresh.to = unionFrom, unionTo
		fresh.pack()

		return fresh
	}

	if unionFrom < s.from {
		var back [modeCount][]*row

		s.appendRange(src, d, &back, unionFrom, s.from)
		s.stitch(d, &back)
	}

	if s.to < unionTo {
		s.appendRange(src, d, &s.rows, s.to, unionTo)
	}

	s.from, s.to = unionFrom, unionTo
	s.extensions++
	s.pack()

	return s
}

// appendRange walks [from, to) in index order and merges every visible
// interval into the open accumulator of its row, or starts a new primitive.
func (s *State) appendRange(src timeline.Source, d *distances, rows *[modeCount][]*row, from, to int) {
	for i := from; i < to; i++ {
		if !d.isVisible(i) {
			continue
		}

		start, end, _ := clampTo(src, s.span, i)
		prim := Primitive{
			Left:  start,
			Right: end,
			Top:   placement(src, i),
			Color: src.Color(i),
			Group: src.GroupID(i),
			First: i,
			Last:  i,
		}

		for _, m := range Modes {
			r := rowAt(&rows[m], rowOf(src, m, i))
			n := len(r.prims)

			if n > 0 && s.config.enabled[m] && d.at(m, i) <= s.config.threshold[m] {
				r.prims[n-1].absorb(prim)
				r.touch(n - 1)

				continue
			}

			r.prims = append(r.prims, prim)
			r.touch(n)
		}
	}
}

// stitch prepends rows built over a range just before the covered one. The
// first covered primitive of a row joins the last prepended one when its
// union distance is within the threshold, exactly as a single pass would
// have merged it. Prepended primitives get fresh batches; of the existing
// ones only the batch that lost its head to such a merge is repacked.
func (s *State) stitch(d *distances, back *[modeCount][]*row) {
	for _, m := range Modes {
		for index, b := range back[m] {
			if b == nil || len(b.prims) == 0 {
				continue
			}

			cur := rowAt(&s.rows[m], index)
			prims := b.prims
			kept := cur.batches
			merged := len(cur.prims) > 0 && s.config.enabled[m] &&
				d.at(m, cur.prims[0].First) <= s.config.threshold[m]

			if merged {
				prims[len(prims)-1].absorb(cur.prims[0])
				prims = append(prims, cur.prims[1:]...)
			} else {
				prims = append(prims, cur.prims...)
			}

			batches := s.chunk(m, index, b.prims)

			if merged && len(kept) > 0 {
				batches = append(batches, s.chunk(m, index, kept[0].Primitives[1:])...)
				kept = kept[1:]
			}

			cur.prims = prims
			cur.batches = append(batches, kept...)
			cur.dirty = len(prims)
		}
	}
}
