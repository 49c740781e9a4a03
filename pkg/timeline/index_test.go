package timeline_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Test constants.
const (
	groupA = int32(0)
	groupB = int32(1)
	groupC = int32(7)
)

// newScenarioIndex inserts (0,10,g0), (2,3,g0), (20,5,g1) in that order.
func newScenarioIndex(t *testing.T) *timeline.Index {
	t.Helper()

	idx := timeline.New()
	idx.Insert(0, 10, groupA)
	idx.Insert(2, 3, groupA)
	idx.Insert(20, 5, groupB)
	idx.ComputeNesting()

	return idx
}

// TestNew verifies empty index creation.
func TestNew(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	assert.Equal(t, 0, idx.Count())
	assert.True(t, idx.IsEmpty())
}

// TestInsert_SortsByStartThenLongestFirst verifies the primary order.
func TestInsert_SortsByStartThenLongestFirst(t *testing.T) {
	t.Parallel()

	idx := timeline.New()

	assert.Equal(t, 0, idx.Insert(10, 5, groupA))
	assert.Equal(t, 0, idx.Insert(3, 1, groupA))
	assert.Equal(t, 1, idx.Insert(3, 4, groupB))
	assert.Equal(t, 3, idx.Insert(12, 1, groupC))

	require.Equal(t, 4, idx.Count())

	starts := []int64{3, 3, 10, 12}
	durations := []int64{4, 1, 5, 1}

	for i := range starts {
		assert.Equal(t, starts[i], idx.StartTime(i), "start at %d", i)
		assert.Equal(t, durations[i], idx.Duration(i), "duration at %d", i)
	}

	assert.Equal(t, groupB, idx.GroupID(0))
}

// TestInsert_EqualRangesKeepCallOrder verifies stability for identical keys.
func TestInsert_EqualRangesKeepCallOrder(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	idx.Insert(5, 5, groupA)

	assert.Equal(t, 1, idx.Insert(5, 5, groupB))
	assert.Equal(t, groupA, idx.GroupID(0))
	assert.Equal(t, groupB, idx.GroupID(1))
}

// TestInsert_EndProjectionTracksShiftedPositions verifies that every end entry
// keeps pointing at its interval after positions shift.
func TestInsert_EndProjectionTracksShiftedPositions(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	idx.Insert(20, 5, groupA)
	idx.Insert(0, 10, groupA)
	idx.Insert(2, 3, groupA)
	idx.Insert(30, 1, groupA)

	seen := make(map[int]bool)

	var prevEnd int64

	for i := range idx.Count() {
		end := idx.EndAt(i)

		assert.GreaterOrEqual(t, end.End, prevEnd, "ends must ascend")
		assert.Equal(t, idx.EndTime(end.StartIndex), end.End)
		assert.False(t, seen[end.StartIndex], "start index %d appears twice", end.StartIndex)

		seen[end.StartIndex] = true
		prevEnd = end.End
	}

	assert.Len(t, seen, idx.Count())
}

// TestInsertStartEnd_Streaming verifies the split insertion form.
func TestInsertStartEnd_Streaming(t *testing.T) {
	t.Parallel()

	idx := timeline.New()

	outer := idx.InsertStart(0, groupA)
	inner := idx.InsertStart(2, groupA)

	idx.InsertEnd(inner, 3)
	idx.InsertEnd(outer, 10)
	idx.ComputeNesting()

	require.Equal(t, 2, idx.Count())
	assert.Equal(t, int64(10), idx.EndTime(outer))
	assert.Equal(t, outer, idx.ParentIndex(inner))
	assert.Equal(t, outer, idx.FirstIndex(1))
}

// TestInsertStart_OpenIntervalInvisibleToEndQueries verifies that open
// intervals are skipped by the end projection.
func TestInsertStart_OpenIntervalInvisibleToEndQueries(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	idx.Insert(0, 2, groupA)
	open := idx.InsertStart(5, groupA)

	assert.Panics(t, func() { idx.ComputeNesting() })

	idx.InsertEnd(open, 1)
	idx.ComputeNesting()

	assert.Equal(t, open, idx.FirstIndex(3))
}

// TestInsertEnd_WithoutStartPanics verifies unbalanced streaming is fatal.
func TestInsertEnd_WithoutStartPanics(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	idx.Insert(0, 1, groupA)

	assert.Panics(t, func() { idx.InsertEnd(0, 1) })
}

// TestInsertEnd_ClosedIntervalPanics verifies that closing an interval that
// is not open panics even while another one is.
func TestInsertEnd_ClosedIntervalPanics(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	closed := idx.Insert(0, 10, groupA)
	open := idx.InsertStart(20, groupA)

	assert.Panics(t, func() { idx.InsertEnd(closed, 5) })
	assert.Panics(t, func() { idx.InsertEnd(idx.Count(), 5) })
	assert.Equal(t, int64(10), idx.Duration(closed))

	idx.InsertEnd(open, 5)
	assert.Panics(t, func() { idx.InsertEnd(open, 5) }, "closing twice")

	idx.ComputeNesting()

	assert.Equal(t, closed, idx.EndAt(0).StartIndex)
	assert.Equal(t, open, idx.EndAt(1).StartIndex)
}

// TestInsertEnd_FollowsShiftedPosition verifies that openness moves with an
// interval when a later insert sorts before it.
func TestInsertEnd_FollowsShiftedPosition(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	open := idx.InsertStart(20, groupA)
	require.Equal(t, 0, open)

	idx.Insert(0, 10, groupA)

	assert.Panics(t, func() { idx.InsertEnd(0, 5) })

	idx.InsertEnd(1, 5)
	idx.ComputeNesting()

	assert.Equal(t, int64(25), idx.EndTime(1))
}

// TestInsert_NegativeDurationPanics verifies invalid durations are fatal.
func TestInsert_NegativeDurationPanics(t *testing.T) {
	t.Parallel()

	idx := timeline.New()

	assert.Panics(t, func() { idx.Insert(0, -1, groupA) })
}

// TestOutOfRangeAccessPanics verifies that bad indices are programmer errors.
func TestOutOfRangeAccessPanics(t *testing.T) {
	t.Parallel()

	idx := newScenarioIndex(t)

	assert.Panics(t, func() { idx.StartTime(3) })
	assert.Panics(t, func() { idx.ParentIndex(-1) })
}

// TestClear verifies the index resets and the revision moves.
func TestClear(t *testing.T) {
	t.Parallel()

	idx := newScenarioIndex(t)
	idx.AssignRows()
	rev := idx.Revision()

	idx.Clear()

	assert.True(t, idx.IsEmpty())
	assert.False(t, idx.Nested())
	assert.Equal(t, 0, idx.ExpandedRowCount())
	assert.NotEqual(t, rev, idx.Revision())
	assert.Equal(t, timeline.NoIndex, idx.FirstIndex(0))
}

// TestRevision_ChangesOnMutation verifies every mutation bumps the revision.
func TestRevision_ChangesOnMutation(t *testing.T) {
	t.Parallel()

	idx := timeline.New()
	r0 := idx.Revision()

	idx.Insert(0, 1, groupA)
	r1 := idx.Revision()
	assert.NotEqual(t, r0, r1)

	idx.ComputeNesting()
	r2 := idx.Revision()
	assert.NotEqual(t, r1, r2)

	idx.AssignRows()
	assert.NotEqual(t, r2, idx.Revision())
}
