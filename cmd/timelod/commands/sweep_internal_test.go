package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
	"github.com/Sumatoshi-tech/timelod/pkg/statecache"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// TestSelectionAt verifies the zoom then pan shape of a sweep.
func TestSelectionAt(t *testing.T) {
	t.Parallel()

	trace := timeline.Span{Start: 1_000, End: 1_000 + 1<<20}

	first := selectionAt(trace, 0, 8)
	assert.Equal(t, trace, first)

	zoomed := selectionAt(trace, 2, 8)
	assert.Equal(t, int64(1<<12), zoomed.Duration())
	assert.True(t, trace.Contains(zoomed))

	panA := selectionAt(trace, 4, 8)
	panB := selectionAt(trace, 5, 8)
	assert.Equal(t, int64(1<<4), panA.Duration())
	assert.Equal(t, int64(1<<2), panB.Start-panA.Start)

	last := selectionAt(trace, 1_000_000, 8)
	assert.Equal(t, trace.End, last.End)
}

// TestSelectionAt_Tiny verifies degenerate traces still yield valid spans.
func TestSelectionAt_Tiny(t *testing.T) {
	t.Parallel()

	for i := range 4 {
		sel := selectionAt(timeline.Span{Start: 5, End: 5}, i, 1)
		assert.LessOrEqual(t, sel.Start, sel.End)
	}
}

// TestParseWindow verifies nanosecond and duration bounds.
func TestParseWindow(t *testing.T) {
	t.Parallel()

	span, err := parseWindow("100:2500")
	require.NoError(t, err)
	assert.Equal(t, timeline.Span{Start: 100, End: 2500}, span)

	span, err = parseWindow("1ms:1.5ms")
	require.NoError(t, err)
	assert.Equal(t, timeline.Span{Start: int64(time.Millisecond), End: int64(1500 * time.Microsecond)}, span)

	for _, raw := range []string{"", "10", "a:b", "5:1"} {
		_, err = parseWindow(raw)
		require.ErrorIs(t, err, ErrInvalidWindow, raw)
	}
}

// TestFrameStats verifies cache deltas and frame counts.
func TestFrameStats(t *testing.T) {
	t.Parallel()

	f := &pipeline.Frame{
		ModelDirty: true,
		Passes: []pipeline.PassOutput{{
			Name:    pipeline.PassItems,
			Batches: []*lod.Batch{{Primitives: make([]lod.Primitive, 3)}},
		}},
	}

	st := frameStats(f, time.Millisecond,
		statecache.Stats{Hits: 2, Misses: 1},
		statecache.Stats{Hits: 5, Misses: 1, Invalidations: 1})

	assert.Equal(t, 3, st.Primitives)
	assert.Equal(t, 1, st.Batches)
	assert.True(t, st.ModelDirty)
	assert.Equal(t, int64(3), st.CacheHits)
	assert.Zero(t, st.CacheMisses)
	assert.Equal(t, int64(1), st.Invalidations)
	assert.Equal(t, time.Millisecond, st.Duration)
}
