// Package timeline provides an append-friendly, order-preserving index over
// nested time intervals. Intervals are kept sorted by start time (longest
// first among equal starts) with a secondary projection sorted by end time,
// which together answer "first interval ending after T" and "last interval
// starting before T" in O(log N).
//
// The index assumes perfect nesting: two overlapping intervals always stand in
// a containment relationship. Input violating this is not rejected; parent
// assignment then degrades to a best-effort result.
//
// Index is not safe for concurrent use. It is mutated during a bulk-load phase
// and is read-only after ComputeNesting until the next Clear.
package timeline

import "fmt"

// NoIndex is the sentinel returned by queries that find nothing.
const NoIndex = -1

// Range is a single interval stored in the index.
type Range struct {
	Start        int64
	Duration     int64
	GroupID      int32
	Parent       int
	ExpandedRow  int
	CollapsedRow int
}

// End returns the end time of the range.
func (r Range) End() int64 {
	return r.Start + r.Duration
}

// RangeEnd is the end-ordered projection of a range.
type RangeEnd struct {
	StartIndex int
	End        int64
}

// Index stores intervals in start order plus an end-ordered projection.
type Index struct {
	ranges []Range
	ends   []RangeEnd

	expandedRowCount  int
	collapsedRowCount int

	// pending marks, per position, intervals opened by InsertStart and not
	// yet closed; open counts them.
	pending  []bool
	open     int
	nested   bool
	revision uint64
}

// New creates an empty index.
func New() *Index {
	return &Index{}
}

// Count returns the number of intervals, including open ones.
func (idx *Index) Count() int {
	return len(idx.ranges)
}

// IsEmpty reports whether the index holds no intervals.
func (idx *Index) IsEmpty() bool {
	return len(idx.ranges) == 0
}

// Revision returns a counter that changes whenever the index content changes.
func (idx *Index) Revision() uint64 {
	return idx.revision
}

// Nested reports whether ComputeNesting ran since the last mutation.
func (idx *Index) Nested() bool {
	return idx.nested
}

// Insert adds a fully known interval and returns its position. The position
// is not necessarily Count()-1: the interval is sorted into place.
func (idx *Index) Insert(start, duration int64, group int32) int {
	if duration < 0 {
		panic(fmt.Sprintf("timeline: negative duration %d", duration))
	}

	pos := idx.insertRange(start, duration, group)
	idx.insertEnd(pos, start+duration)

	return pos
}

// InsertStart adds an interval whose end is not yet known. The interval is
// open until InsertEnd is called for the returned position; queries relying
// on the end projection do not see it meanwhile.
func (idx *Index) InsertStart(start int64, group int32) int {
	pos := idx.insertRange(start, 0, group)
	idx.pending[pos] = true
	idx.open++

	return pos
}

// InsertEnd closes an interval opened by InsertStart. The position must still
// refer to the same interval, which holds as long as no later insert sorted
// before it. Closing a position that is not open panics.
func (idx *Index) InsertEnd(index int, duration int64) {
	if index < 0 || index >= len(idx.pending) || !idx.pending[index] {
		panic(fmt.Sprintf("timeline: InsertEnd on interval %d which is not open", index))
	}

	if duration < 0 {
		panic(fmt.Sprintf("timeline: negative duration %d", duration))
	}

	r := &idx.ranges[index]
	r.Duration = duration
	idx.pending[index] = false
	idx.open--

	idx.insertEnd(index, r.Start+duration)
}

// Clear removes all intervals and resets row counts.
func (idx *Index) Clear() {
	idx.ranges = idx.ranges[:0]
	idx.ends = idx.ends[:0]
	idx.pending = idx.pending[:0]
	idx.expandedRowCount = 0
	idx.collapsedRowCount = 0
	idx.open = 0
	idx.nested = false
	idx.revision++
}

// insertRange sorts a new range into the primary slice and fixes up the end
// projection's references to shifted positions.
func (idx *Index) insertRange(start, duration int64, group int32) int {
	pos := len(idx.ranges)
	for pos > 0 && sortsBefore(start, duration, idx.ranges[pos-1]) {
		pos--
	}

	idx.ranges = append(idx.ranges, Range{})
	copy(idx.ranges[pos+1:], idx.ranges[pos:])
	idx.ranges[pos] = Range{
		Start:    start,
		Duration: duration,
		GroupID:  group,
		Parent:   NoIndex,
	}

	idx.pending = append(idx.pending, false)
	copy(idx.pending[pos+1:], idx.pending[pos:])
	idx.pending[pos] = false

	if pos < len(idx.ranges)-1 {
		for i := range idx.ends {
			if idx.ends[i].StartIndex >= pos {
				idx.ends[i].StartIndex++
			}
		}
	}

	idx.nested = false
	idx.revision++

	return pos
}

// insertEnd sorts an end projection entry into place. Equal ends keep call order.
func (idx *Index) insertEnd(startIndex int, end int64) {
	pos := len(idx.ends)
	for pos > 0 && idx.ends[pos-1].End > end {
		pos--
	}

	idx.ends = append(idx.ends, RangeEnd{})
	copy(idx.ends[pos+1:], idx.ends[pos:])
	idx.ends[pos] = RangeEnd{StartIndex: startIndex, End: end}

	idx.nested = false
	idx.revision++
}

// sortsBefore reports whether a new range (start, duration) belongs before r:
// start ascending, duration descending among equal starts.
func sortsBefore(start, duration int64, r Range) bool {
	if start != r.Start {
		return start < r.Start
	}

	return duration > r.Duration
}

// Range returns a copy of the interval at index.
func (idx *Index) Range(index int) Range {
	return idx.ranges[index]
}

// StartTime returns the start of the interval at index.
func (idx *Index) StartTime(index int) int64 {
	return idx.ranges[index].Start
}

// Duration returns the duration of the interval at index.
func (idx *Index) Duration(index int) int64 {
	return idx.ranges[index].Duration
}

// EndTime returns the end of the interval at index.
func (idx *Index) EndTime(index int) int64 {
	return idx.ranges[index].End()
}

// GroupID returns the caller-defined group of the interval at index.
func (idx *Index) GroupID(index int) int32 {
	return idx.ranges[index].GroupID
}

// ParentIndex returns the parent computed by ComputeNesting, or NoIndex.
func (idx *Index) ParentIndex(index int) int {
	return idx.ranges[index].Parent
}

// EndAt returns the i-th entry of the end-ordered projection.
func (idx *Index) EndAt(i int) RangeEnd {
	return idx.ends[i]
}

// mustBeQueryable panics when a non-empty index is queried before nesting.
func (idx *Index) mustBeQueryable() {
	if !idx.nested && len(idx.ranges) > 0 {
		panic("timeline: query before ComputeNesting")
	}
}
