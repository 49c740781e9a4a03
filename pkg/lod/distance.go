package lod

import (
	"math"
	"slices"

	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// noDistance marks the first visible interval of a row.
const noDistance = int64(math.MaxInt64)

// noStart marks a row without a previous interval.
const noStart = int64(math.MinInt64)

// distances holds per-layout merge distances for [from, from+len(visible)).
type distances struct {
	from    int
	visible []bool
	dist    [modeCount][]int64
}

// at returns the distance of interval i in mode m.
func (d *distances) at(m Mode, i int) int64 {
	return d.dist[m][i-d.from]
}

// isVisible reports whether interval i intersects the span.
func (d *distances) isVisible(i int) bool {
	return d.visible[i-d.from]
}

// clampTo clips interval i to span and reports whether anything remains.
func clampTo(src timeline.Source, span timeline.Span, i int) (start, end int64, visible bool) {
	s := src.StartTime(i)
	start = max(span.Start, s)
	end = min(span.End, s+src.Duration(i))

	return start, end, start <= end
}

// rowOf returns the row of interval i in mode m.
func rowOf(src timeline.Source, m Mode, i int) int {
	if m == Collapsed {
		return src.CollapsedRow(i)
	}

	return src.ExpandedRow(i)
}

// computeDistances measures, for every visible interval in [from, to) and
// each layout, the perturbed width a merge with the previous visible interval
// in the same row would produce. Every interval is widened by i%modulus on
// both sides, so a distance carries the offsets of both neighbors and equal
// spacings still order deterministically.
func computeDistances(src timeline.Source, span timeline.Span, from, to, modulus int) *distances {
	n := to - from
	d := &distances{
		from:    from,
		visible: make([]bool, n),
	}

	var prevStart [modeCount][]int64

	for _, m := range Modes {
		d.dist[m] = make([]int64, n)
	}

	for i := from; i < to; i++ {
		start, end, ok := clampTo(src, span, i)
		if !ok {
			continue
		}

		d.visible[i-from] = true
		perturb := int64(i % modulus)

		for _, m := range Modes {
			row := rowOf(src, m, i)
			for len(prevStart[m]) <= row {
				prevStart[m] = append(prevStart[m], noStart)
			}

			if prev := prevStart[m][row]; prev == noStart {
				d.dist[m][i-from] = noDistance
			} else {
				d.dist[m][i-from] = end + perturb - prev
			}

			prevStart[m][row] = start - perturb
		}
	}

	return d
}

// mergeConfig is the merge decision input shared by every part of a state.
type mergeConfig struct {
	enabled   [modeCount]bool
	threshold [modeCount]int64
}

// configFor selects thresholds for a covered range of n intervals.
func configFor(d *distances, n int, opts Options) mergeConfig {
	var cfg mergeConfig

	if n <= opts.TriggerCount {
		return cfg
	}

	for _, m := range Modes {
		cfg.threshold[m], cfg.enabled[m] = threshold(d, m, opts.MaxPrimitivesPerBatch)
	}

	return cfg
}

// threshold returns the visible distance at rank count-limit, or false when
// there are no more than limit visible intervals.
func threshold(d *distances, m Mode, limit int) (int64, bool) {
	values := make([]int64, 0, len(d.visible))

	for k, vis := range d.visible {
		if vis {
			values = append(values, d.dist[m][k])
		}
	}

	rank := len(values) - limit
	if rank < 0 {
		return 0, false
	}

	slices.Sort(values)

	return values[rank], true
}
