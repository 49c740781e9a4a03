package lod_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Test constants.
const (
	uniformCount  = 2_000_000
	uniformStride = int64(2)

	fidelityCount = 10_000
	fidelityCap   = 5_000

	gappedCount = 2_000
	gappedEvery = 25
	gappedGap   = int64(100)
	gappedLimit = 100

	randomCount = 3_000
	randomRows  = 5
	smallCap    = 40
	smallMod    = 7
)

var splitSeeds = []uint64{3, 11, 2024}

// assertCaps checks every batch of s against the per-batch limits.
func assertCaps(t *testing.T, s *lod.State, maxPrims int) {
	t.Helper()

	for _, m := range lod.Modes {
		for _, b := range s.Batches(m) {
			assert.LessOrEqual(t, len(b.Primitives), maxPrims)
			assert.LessOrEqual(t, len(b.Vertices), lod.DefaultVertexCeiling)
			assert.Len(t, b.Vertices, len(b.Primitives)*lod.VerticesPerPrimitive)
			assert.Len(t, b.Indices, len(b.Primitives)*lod.IndicesPerPrimitive)
		}
	}
}

// primitiveCount returns the total primitives of mode m over s's batches.
func primitiveCount(s *lod.State, m lod.Mode) int {
	n := 0
	for _, b := range s.Batches(m) {
		n += len(b.Primitives)
	}

	return n
}

// newGappedSource returns runs of gappedEvery evenly spaced unit intervals
// separated by wide gaps.
func newGappedSource() gappedSource {
	return gappedSource{
		uniformSource: uniformSource{n: gappedCount, stride: uniformStride},
		every:         gappedEvery,
		gap:           gappedGap,
	}
}

// gappedOptions merges inside runs only. A modulus of one keeps every
// in-run distance equal so sub-range thresholds match the union's.
func gappedOptions(ceiling int) lod.Options {
	return lod.Options{
		MaxPrimitivesPerBatch: gappedLimit,
		TriggerCount:          10,
		PerturbationModulus:   1,
		VertexCeiling:         ceiling,
	}
}

func smallOptions() lod.Options {
	return lod.Options{
		MaxPrimitivesPerBatch: smallCap,
		TriggerCount:          0,
		PerturbationModulus:   smallMod,
	}
}

// TestUpdate_NoMergingBelowTrigger verifies one primitive per visible interval
// and the quad geometry layout.
func TestUpdate_NoMergingBelowTrigger(t *testing.T) {
	t.Parallel()

	src := itemSource{
		{start: 25, duration: 50, height: 0.5},
		{start: 80, duration: 10, height: 1},
		{start: 95, duration: 5, height: 1, expanded: 1},
	}
	span := timeline.Span{Start: 0, End: 100}

	s := lod.New(lod.DefaultOptions()).Update(src, span, nil, 0, src.Count())

	enabled, _ := s.Merging(lod.Expanded)
	assert.False(t, enabled)
	assert.Len(t, s.Primitives(lod.Expanded), 3)
	assert.Len(t, s.Primitives(lod.Collapsed), 3)
	assert.Equal(t, 2, s.RowCount(lod.Expanded))
	assert.Equal(t, 1, s.RowCount(lod.Collapsed))

	batches := s.RowBatches(lod.Expanded, 0)
	require.Len(t, batches, 1)

	b := batches[0]
	assert.Equal(t, lod.FormatIndexedQuads, b.Format)
	assert.Equal(t, lod.MaterialItems, b.Material)
	assert.Equal(t, []uint16{0, 1, 2, 2, 1, 3, 4, 5, 6, 6, 5, 7}, b.Indices)
	assert.InDelta(t, 0.25, b.Vertices[0].X, 1e-6)
	assert.InDelta(t, 0.75, b.Vertices[1].X, 1e-6)
	assert.InDelta(t, 0.5, b.Vertices[0].Y, 1e-6)
	assert.InDelta(t, 1.0, b.Vertices[2].Y, 1e-6)
}

// TestUpdate_ClipsToSpan verifies intervals outside the span are skipped and
// partial ones are clamped.
func TestUpdate_ClipsToSpan(t *testing.T) {
	t.Parallel()

	src := itemSource{
		{start: 0, duration: 5, height: 1},
		{start: 8, duration: 10, height: 1},
		{start: 30, duration: 5, height: 1},
	}
	span := timeline.Span{Start: 10, End: 20}

	prims := lod.New(lod.DefaultOptions()).Update(src, span, nil, 0, src.Count()).Primitives(lod.Expanded)

	require.Len(t, prims, 1)
	assert.Equal(t, int64(10), prims[0].Left)
	assert.Equal(t, int64(18), prims[0].Right)
	assert.Equal(t, 1, prims[0].First)
}

// TestUpdate_MergeAccumulates verifies merged primitives keep the earliest
// color and first index, the latest last index, the widest right edge and
// the highest top.
func TestUpdate_MergeAccumulates(t *testing.T) {
	t.Parallel()

	src := itemSource{
		{start: 0, duration: 50, height: 0.5, group: 1},
		{start: 10, duration: 5, height: 0.9, group: 2},
		{start: 20, duration: 2, height: 0.1, group: 3},
	}

	opts := lod.Options{MaxPrimitivesPerBatch: 1, TriggerCount: 0}
	prims := lod.New(opts).Update(src, src.span(), nil, 0, src.Count()).Primitives(lod.Expanded)

	require.Len(t, prims, 1)

	p := prims[0]
	assert.Equal(t, int64(0), p.Left)
	assert.Equal(t, int64(50), p.Right)
	assert.InDelta(t, 0.1, p.Top, 1e-6)
	assert.Equal(t, timeline.ColorByGroup(1), p.Color)
	assert.Equal(t, int32(1), p.Group)
	assert.Equal(t, 0, p.First)
	assert.Equal(t, 2, p.Last)
}

// TestUpdate_UniformTwoMillion verifies that the large uniform trace fills
// the primitive budget instead of collapsing, that every batch respects both
// caps and that a split run matches.
func TestUpdate_UniformTwoMillion(t *testing.T) {
	if testing.Short() {
		t.Skip("large input")
	}

	t.Parallel()

	src := uniformSource{n: uniformCount, stride: uniformStride}
	agg := lod.New(lod.DefaultOptions())

	whole := agg.Update(src, src.span(), nil, 0, uniformCount)

	enabled, _ := whole.Merging(lod.Expanded)
	require.True(t, enabled)

	prims := len(whole.Primitives(lod.Expanded))
	assert.LessOrEqual(t, prims, lod.DefaultMaxPrimitivesPerBatch)
	assert.InDelta(t, lod.DefaultMaxPrimitivesPerBatch, prims, lod.DefaultMaxPrimitivesPerBatch/32)
	assert.LessOrEqual(t, (prims+lod.DefaultMaxPrimitivesPerBatch-1)/lod.DefaultMaxPrimitivesPerBatch, 2)

	perBatch := agg.Options().PrimitivesPerBatch()
	assert.Len(t, whole.RowBatches(lod.Expanded, 0), (prims+perBatch-1)/perBatch)
	assert.Equal(t, prims, primitiveCount(whole, lod.Expanded))
	assertCaps(t, whole, lod.DefaultMaxPrimitivesPerBatch)

	half := agg.Update(src, src.span(), nil, 0, uniformCount/2)
	split := agg.Update(src, src.span(), half, uniformCount/2, uniformCount)

	assert.Equal(t, whole.Primitives(lod.Expanded), split.Primitives(lod.Expanded))
	assert.Equal(t, whole.Primitives(lod.Collapsed), split.Primitives(lod.Collapsed))
}

// TestUpdate_UniformSpacingKeepsFidelity verifies that evenly spaced
// intervals get distinct distances, so merging stops near the cap.
func TestUpdate_UniformSpacingKeepsFidelity(t *testing.T) {
	t.Parallel()

	src := uniformSource{n: fidelityCount, stride: uniformStride}
	s := lod.New(lod.Options{MaxPrimitivesPerBatch: fidelityCap, TriggerCount: 0}).
		Update(src, src.span(), nil, 0, fidelityCount)

	enabled, threshold := s.Merging(lod.Expanded)
	require.True(t, enabled)
	assert.Greater(t, threshold, uniformStride+1)

	prims := s.Primitives(lod.Expanded)
	assert.LessOrEqual(t, len(prims), fidelityCap)
	assert.InDelta(t, fidelityCap, len(prims), fidelityCap/32)

	widths := make(map[int64]struct{})
	for _, p := range prims {
		widths[p.Right-p.Left] = struct{}{}
	}

	assert.Greater(t, len(widths), 1, "merges depend on position")
}

// TestUpdate_SplitRunEquivalence verifies that forward, backward and
// three-way incremental runs match a single run over the union.
func TestUpdate_SplitRunEquivalence(t *testing.T) {
	t.Parallel()

	agg := lod.New(smallOptions())

	for _, seed := range splitSeeds {
		src := randomSource(seed, randomCount, randomRows)
		span := src.span()
		whole := agg.Update(src, span, nil, 0, src.Count())

		for _, k := range []int{1, randomCount / 3, randomCount / 2, randomCount - 1} {
			forward := agg.Update(src, span, agg.Update(src, span, nil, 0, k), k, randomCount)
			backward := agg.Update(src, span, agg.Update(src, span, nil, k, randomCount), 0, k)

			for _, m := range lod.Modes {
				assert.Equal(t, whole.Primitives(m), forward.Primitives(m), "seed %d k %d %s forward", seed, k, m)
				assert.Equal(t, whole.Primitives(m), backward.Primitives(m), "seed %d k %d %s backward", seed, k, m)
			}
		}

		lo, hi := randomCount/3, 2*randomCount/3
		s := agg.Update(src, span, nil, lo, hi)
		s = agg.Update(src, span, s, 0, lo)
		s = agg.Update(src, span, s, hi, randomCount)

		for _, m := range lod.Modes {
			assert.Equal(t, whole.Primitives(m), s.Primitives(m), "seed %d %s three-way", seed, m)
		}

		assertCaps(t, whole, smallCap)
	}
}

// TestUpdate_StitchPathWithStableThreshold verifies incremental extension
// without a rebuild when the threshold does not change, both with and
// without a merge across the seam.
func TestUpdate_StitchPathWithStableThreshold(t *testing.T) {
	t.Parallel()

	src := newGappedSource()
	agg := lod.New(gappedOptions(0))

	whole := agg.Update(src, src.span(), nil, 0, gappedCount)
	require.Len(t, whole.Primitives(lod.Expanded), gappedCount/gappedEvery)

	for _, k := range []int{gappedCount / 2, gappedCount/2 + gappedEvery/2} {
		back := agg.Update(src, src.span(), nil, k, gappedCount)
		back = agg.Update(src, src.span(), back, 0, k)

		fwd := agg.Update(src, src.span(), nil, 0, k)
		fwd = agg.Update(src, src.span(), fwd, k, gappedCount)

		assert.Equal(t, whole.Primitives(lod.Expanded), back.Primitives(lod.Expanded), "k %d", k)
		assert.Equal(t, whole.Primitives(lod.Expanded), fwd.Primitives(lod.Expanded), "k %d", k)
		assert.Equal(t, 0, back.Stats().Rebuilds)
		assert.Equal(t, 1, back.Stats().Extensions)
		assert.Equal(t, 0, fwd.Stats().Rebuilds)
	}
}

// TestUpdate_VertexCeilingSplitsBatches verifies the structural batch limit.
func TestUpdate_VertexCeilingSplitsBatches(t *testing.T) {
	t.Parallel()

	const count, ceiling = 250, 400

	src := uniformSource{n: count, stride: uniformStride}
	opts := lod.Options{VertexCeiling: ceiling, TriggerCount: math.MaxInt}
	s := lod.New(opts).Update(src, src.span(), nil, 0, count)

	batches := s.RowBatches(lod.Expanded, 0)
	require.Len(t, batches, 3)

	for _, b := range batches {
		assert.LessOrEqual(t, len(b.Vertices), ceiling)
	}

	assert.Len(t, batches[2].Primitives, 50)
}

// TestUpdate_ForwardExtensionKeepsBatchIdentity verifies that only the tail
// batch of an extended row is repacked.
func TestUpdate_ForwardExtensionKeepsBatchIdentity(t *testing.T) {
	t.Parallel()

	src := uniformSource{n: 50, stride: uniformStride}
	opts := lod.Options{MaxPrimitivesPerBatch: 10, TriggerCount: math.MaxInt}
	agg := lod.New(opts)

	s := agg.Update(src, src.span(), nil, 0, 35)
	before := s.RowBatches(lod.Expanded, 0)
	require.Len(t, before, 4)

	ids := make([]uint64, len(before))
	for i, b := range before {
		ids[i] = b.ID
	}

	s = agg.Update(src, src.span(), s, 35, 50)
	after := s.RowBatches(lod.Expanded, 0)
	require.Len(t, after, 5)

	for i := range 3 {
		assert.Same(t, before[i], after[i])
		assert.Equal(t, ids[i], after[i].ID)
	}

	assert.NotEqual(t, ids[3], after[3].ID)
	assert.Len(t, before[3].Primitives, 5, "replaced batches stay intact")
	assert.Equal(t, ids[3], before[3].ID)
}

// TestUpdate_BackwardExtensionKeepsBatchIdentity verifies that prepending
// leaves existing batches untouched when nothing merges across the seam.
func TestUpdate_BackwardExtensionKeepsBatchIdentity(t *testing.T) {
	t.Parallel()

	const k, perBatch = gappedCount / 2, 10

	src := newGappedSource()
	agg := lod.New(gappedOptions(perBatch * lod.VerticesPerPrimitive))

	s := agg.Update(src, src.span(), nil, k, gappedCount)
	before := s.RowBatches(lod.Expanded, 0)
	require.Len(t, before, 4)

	ids := make([]uint64, len(before))
	for i, b := range before {
		ids[i] = b.ID
	}

	s = agg.Update(src, src.span(), s, 0, k)
	after := s.RowBatches(lod.Expanded, 0)
	require.Len(t, after, 8)
	assert.Equal(t, 0, s.Stats().Rebuilds)

	for i, b := range before {
		assert.Same(t, b, after[4+i])
		assert.Equal(t, ids[i], after[4+i].ID)
	}

	whole := agg.Update(src, src.span(), nil, 0, gappedCount)
	assert.Equal(t, whole.Primitives(lod.Expanded), s.Primitives(lod.Expanded))
	assert.Equal(t, len(s.Primitives(lod.Expanded)), primitiveCount(s, lod.Expanded))
	assertCaps(t, s, perBatch)
}

// TestUpdate_BackwardSeamMergeRepacksOneBatch verifies that a merge across
// the seam only replaces the batch that lost its first primitive.
func TestUpdate_BackwardSeamMergeRepacksOneBatch(t *testing.T) {
	t.Parallel()

	const k, perBatch = gappedCount/2 + gappedEvery/2, 10

	src := newGappedSource()
	agg := lod.New(gappedOptions(perBatch * lod.VerticesPerPrimitive))

	s := agg.Update(src, src.span(), nil, k, gappedCount)
	before := s.RowBatches(lod.Expanded, 0)
	require.Len(t, before, 4)

	s = agg.Update(src, src.span(), s, 0, k)
	after := s.RowBatches(lod.Expanded, 0)
	require.Len(t, after, 9)
	assert.Equal(t, 0, s.Stats().Rebuilds)

	for _, b := range after {
		assert.NotEqual(t, before[0].ID, b.ID)
	}

	assert.Len(t, after[5].Primitives, perBatch-1)

	for i, b := range before[1:] {
		assert.Same(t, b, after[6+i])
	}

	whole := agg.Update(src, src.span(), nil, 0, gappedCount)
	assert.Equal(t, whole.Primitives(lod.Expanded), s.Primitives(lod.Expanded))
	assert.Equal(t, len(s.Primitives(lod.Expanded)), primitiveCount(s, lod.Expanded))
	assertCaps(t, s, perBatch)
}

// TestUpdate_CoveredRangeIsReused verifies covered requests do no work.
func TestUpdate_CoveredRangeIsReused(t *testing.T) {
	t.Parallel()

	src := randomSource(1, 100, 2)
	agg := lod.New(lod.DefaultOptions())

	s := agg.Update(src, src.span(), nil, 0, 100)
	again := agg.Update(src, src.span(), s, 10, 90)

	assert.Same(t, s, again)
	assert.Equal(t, 1, again.Stats().Reuses)

	from, to := again.Covered()
	assert.Equal(t, 0, from)
	assert.Equal(t, 100, to)
}

// TestUpdate_SpanChangeStartsFresh verifies a state is only extended for the
// span it was built for.
func TestUpdate_SpanChangeStartsFresh(t *testing.T) {
	t.Parallel()

	src := randomSource(5, 100, 2)
	agg := lod.New(lod.DefaultOptions())

	s := agg.Update(src, src.span(), nil, 0, 100)
	other := agg.Update(src, timeline.Span{Start: 0, End: 10}, s, 0, 100)

	assert.NotSame(t, s, other)
	assert.Equal(t, timeline.Span{Start: 0, End: 10}, other.Span())
}

// TestUpdate_EmptyRange verifies empty and out-of-range requests.
func TestUpdate_EmptyRange(t *testing.T) {
	t.Parallel()

	src := itemSource{}
	s := lod.New(lod.DefaultOptions()).Update(src, timeline.Span{}, nil, 0, 10)

	assert.Empty(t, s.Batches(lod.Expanded))
	assert.Equal(t, lod.Stats{}, s.Stats())
}

// TestOptions_PrimitivesPerBatch verifies the effective batch limit.
func TestOptions_PrimitivesPerBatch(t *testing.T) {
	t.Parallel()

	assert.Equal(t, lod.DefaultVertexCeiling/lod.VerticesPerPrimitive, lod.DefaultOptions().PrimitivesPerBatch())
	assert.Equal(t, 10, lod.Options{MaxPrimitivesPerBatch: 10, VertexCeiling: 400}.PrimitivesPerBatch())

	agg := lod.New(lod.Options{VertexCeiling: 1 << 20, TriggerCount: -1})
	assert.Equal(t, lod.DefaultVertexCeiling, agg.Options().VertexCeiling)
	assert.Equal(t, lod.DefaultTriggerCount, agg.Options().TriggerCount)
}

// TestMode_String verifies layout names.
func TestMode_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "expanded", lod.Expanded.String())
	assert.Equal(t, "collapsed", lod.Collapsed.String())
}
