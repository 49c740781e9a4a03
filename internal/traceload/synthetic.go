package traceload

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/Sumatoshi-tech/timelod/pkg/safeconv"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Pattern selects a synthetic workload shape.
type Pattern string

const (
	// PatternNested emits call-tree shaped intervals across several threads.
	PatternNested Pattern = "nested"
	// PatternUniform emits equally spaced siblings on a single thread.
	PatternUniform Pattern = "uniform"
)

// Synthetic workload parameters, in nanoseconds.
const (
	syntheticThreads  = 4
	syntheticMaxDepth = 6
	syntheticFanout   = 4
	rootMinDuration   = 10_000
	rootMaxDuration   = 2_000_000
	rootGap           = 1_000
	uniformStride     = 1_000
	uniformDuration   = 600
	pcgStream         = 0x9e3779b97f4a7c15
)

// ErrUnknownPattern is returned for an unsupported synthetic pattern.
var ErrUnknownPattern = errors.New("traceload: unknown synthetic pattern")

// Synthetic builds a deterministic workload of n intervals.
func Synthetic(pattern Pattern, n int, seed uint64) (*Trace, error) {
	if n <= 0 {
		return nil, ErrNoEvents
	}

	var tr *Trace

	switch pattern {
	case PatternNested:
		tr = nestedWorkload(n, rand.New(rand.NewPCG(seed, pcgStream)))
	case PatternUniform:
		tr = uniformWorkload(n)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, pattern)
	}

	tr.Index.ComputeNesting()
	tr.Index.AssignRows()

	return tr, nil
}

func uniformWorkload(n int) *Trace {
	tr := &Trace{Index: timeline.New(), Threads: []Thread{{Pid: "0", Tid: "0", Name: "uniform"}}}

	for i := range n {
		tr.Index.Insert(int64(i)*uniformStride, uniformDuration, 0)
	}

	tr.Events = n
	tr.Span = timeline.Span{End: int64(n-1)*uniformStride + uniformDuration}

	return tr
}

type nestedGen struct {
	rng    *rand.Rand
	tr     *Trace
	budget int
}

func nestedWorkload(n int, rng *rand.Rand) *Trace {
	g := &nestedGen{rng: rng, budget: n, tr: &Trace{Index: timeline.New()}}

	for t := range syntheticThreads {
		tid := ThreadID(fmt.Sprint(t))
		g.tr.Threads = append(g.tr.Threads, Thread{Pid: "0", Tid: tid, Name: "thread-" + string(tid)})
	}

	cursors := make([]int64, syntheticThreads)

	for g.budget > 0 {
		for t := range syntheticThreads {
			if g.budget == 0 {
				break
			}

			dur := rootMinDuration + g.rng.Int64N(rootMaxDuration-rootMinDuration)
			g.emit(cursors[t], dur, safeconv.MustIntToInt32(t), 0)
			cursors[t] += dur + rootGap
		}
	}

	g.tr.Events = n
	g.tr.Span = timeline.Span{End: slices.Max(cursors) - rootGap}

	return g.tr
}

// emit inserts [start, start+dur) and fills it with randomly placed
// children, each confined to its own slot so siblings never overlap.
func (g *nestedGen) emit(start, dur int64, group int32, depth int) {
	g.tr.Index.Insert(start, dur, group)
	g.budget--

	if depth+1 >= syntheticMaxDepth {
		return
	}

	kids := g.rng.IntN(syntheticFanout + 1)

	slot := dur / int64(max(kids, 1))
	if slot < 2 {
		return
	}

	for k := range kids {
		if g.budget == 0 {
			return
		}

		lo := start + int64(k)*slot
		off := g.rng.Int64N(slot / 2)
		g.emit(lo+off, 1+g.rng.Int64N(slot-off), group, depth+1)
	}
}
