package timeline

// FirstIndex returns the first interval, in end order, that ends strictly after
// t, resolved to its parent when it has one. Returns NoIndex when no interval
// ends after t.
func (idx *Index) FirstIndex(t int64) int {
	index := idx.firstIndexNoParents(t)
	if index == NoIndex {
		return NoIndex
	}

	if parent := idx.ranges[index].Parent; parent != NoIndex {
		return parent
	}

	return index
}

// firstIndexNoParents is FirstIndex without parent resolution.
func (idx *Index) firstIndexNoParents(t int64) int {
	idx.mustBeQueryable()

	n := len(idx.ends)
	if n == 0 {
		return NoIndex
	}

	if idx.ends[0].End > t {
		return idx.ends[0].StartIndex
	}

	if idx.ends[n-1].End <= t {
		return NoIndex
	}

	// ends[0].End <= t < ends[n-1].End.
	pos := lowerBound(n, func(i int) bool { return idx.ends[i].End <= t })

	return idx.ends[pos+1].StartIndex
}

// LastIndex returns the last interval, in start order, that starts strictly
// before t. Returns NoIndex for an empty index or when every interval starts
// at or after t.
func (idx *Index) LastIndex(t int64) int {
	idx.mustBeQueryable()

	n := len(idx.ranges)
	if n == 0 || idx.ranges[0].Start >= t {
		return NoIndex
	}

	if idx.ranges[n-1].Start < t {
		return n - 1
	}

	// ranges[0].Start < t <= ranges[n-1].Start.
	return lowerBound(n, func(i int) bool { return idx.ranges[i].Start < t })
}

// BestIndex returns an interval near t for hit-testing: the midpoint between
// the LastIndex bound and the unresolved FirstIndex bound. The result is not
// guaranteed to cover t.
func (idx *Index) BestIndex(t int64) int {
	last := idx.LastIndex(t)
	first := idx.firstIndexNoParents(t)

	switch {
	case last == NoIndex:
		return first
	case first == NoIndex:
		return last
	default:
		return (first + last) / 2
	}
}

// lowerBound returns the last index in [0, n) for which before reports true.
// Callers guarantee that before(0) holds and before(n-1) does not, so the
// result is always in range; empty containers and targets outside the stored
// span must be handled before calling.
func lowerBound(n int, before func(i int) bool) int {
	from, to := 0, n-1

	for to-from > 1 {
		mid := from + (to-from)/2
		if before(mid) {
			from = mid
		} else {
			to = mid
		}
	}

	return from
}

// NextItemMatching scans forward, circularly, for the next interval accepted
// by match. The scan starts after current, or at the first interval ending
// after t when current is NoIndex. Returns NoIndex when nothing matches.
func (idx *Index) NextItemMatching(match func(index int) bool, t int64, current int) int {
	n := len(idx.ranges)
	if n == 0 {
		return NoIndex
	}

	var ndx int
	if current == NoIndex {
		ndx = idx.firstIndexNoParents(t)
	} else {
		idx.mustBeQueryable()

		ndx = current + 1
	}

	if ndx < 0 || ndx >= n {
		ndx = 0
	}

	start := ndx

	for {
		if match(ndx) {
			return ndx
		}

		ndx = (ndx + 1) % n
		if ndx == start {
			return NoIndex
		}
	}
}

// PrevItemMatching scans backward, circularly, for the previous interval
// accepted by match. The scan starts before current, or at the first interval
// ending after t when current is NoIndex. Returns NoIndex when nothing matches.
func (idx *Index) PrevItemMatching(match func(index int) bool, t int64, current int) int {
	n := len(idx.ranges)
	if n == 0 {
		return NoIndex
	}

	var ndx int
	if current == NoIndex {
		ndx = idx.firstIndexNoParents(t)
	} else {
		idx.mustBeQueryable()

		ndx = current - 1
	}

	if ndx < 0 || ndx >= n {
		ndx = n - 1
	}

	start := ndx

	for {
		if match(ndx) {
			return ndx
		}

		ndx--
		if ndx < 0 {
			ndx = n - 1
		}

		if ndx == start {
			return NoIndex
		}
	}
}

// NextItemByGroup returns the next interval belonging to group.
func (idx *Index) NextItemByGroup(group int32, t int64, current int) int {
	return idx.NextItemMatching(func(i int) bool { return idx.ranges[i].GroupID == group }, t, current)
}

// PrevItemByGroup returns the previous interval belonging to group.
func (idx *Index) PrevItemByGroup(group int32, t int64, current int) int {
	return idx.PrevItemMatching(func(i int) bool { return idx.ranges[i].GroupID == group }, t, current)
}
