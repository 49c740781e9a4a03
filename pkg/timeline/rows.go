package timeline

import "slices"

// ExpandedRow returns the row of the interval in the expanded layout.
func (idx *Index) ExpandedRow(index int) int {
	return idx.ranges[index].ExpandedRow
}

// CollapsedRow returns the row of the interval in the collapsed layout.
func (idx *Index) CollapsedRow(index int) int {
	return idx.ranges[index].CollapsedRow
}

// ExpandedRowCount returns the number of rows in the expanded layout.
func (idx *Index) ExpandedRowCount() int {
	return idx.expandedRowCount
}

// CollapsedRowCount returns the number of rows in the collapsed layout.
func (idx *Index) CollapsedRowCount() int {
	return idx.collapsedRowCount
}

// SetExpandedRowCount changes the number of expanded rows. Layouts may add
// rows later; existing assignments are not moved.
func (idx *Index) SetExpandedRowCount(n int) {
	idx.expandedRowCount = n
}

// SetCollapsedRowCount changes the number of collapsed rows.
func (idx *Index) SetCollapsedRowCount(n int) {
	idx.collapsedRowCount = n
}

// SetRows assigns both layout rows of one interval and grows the row counts
// when needed.
func (idx *Index) SetRows(index, expanded, collapsed int) {
	r := &idx.ranges[index]
	r.ExpandedRow = expanded
	r.CollapsedRow = collapsed

	idx.expandedRowCount = max(idx.expandedRowCount, expanded+1)
	idx.collapsedRowCount = max(idx.collapsedRowCount, collapsed+1)
	idx.revision++
}

// AssignRows computes the default layouts: one expanded row per group id
// (dense rank in ascending group order) and one collapsed row per concurrent
// nesting depth.
func (idx *Index) AssignRows() {
	groups := make([]int32, 0, len(idx.ranges))
	for i := range idx.ranges {
		groups = append(groups, idx.ranges[i].GroupID)
	}

	slices.Sort(groups)
	groups = slices.Compact(groups)

	rank := make(map[int32]int, len(groups))
	for i, g := range groups {
		rank[g] = i
	}

	openEnds := make([]int64, 0, nestingCandidateHint)
	maxDepth := -1

	for i := range idx.ranges {
		r := &idx.ranges[i]

		for len(openEnds) > 0 && openEnds[len(openEnds)-1] <= r.Start {
			openEnds = openEnds[:len(openEnds)-1]
		}

		r.ExpandedRow = rank[r.GroupID]
		r.CollapsedRow = len(openEnds)
		maxDepth = max(maxDepth, r.CollapsedRow)

		openEnds = append(openEnds, r.End())
	}

	idx.expandedRowCount = len(groups)
	idx.collapsedRowCount = maxDepth + 1
	idx.revision++
}
