package timeline

// ComputeNesting assigns parents in a single forward pass over the intervals.
//
// A candidate list holds intervals that were not contained by any earlier
// interval. For each interval the list is walked from the most recently added
// candidate: candidates ending before the interval starts are dropped, a
// containing candidate becomes the parent (or the candidate's own parent, so
// parents point at the outermost ancestor needed by range queries), and a
// candidate with the exact same start that ends sooner is made the child of
// the current interval instead. This keeps "lowest index first" for same-start
// queries; it only triggers on exact start ties.
//
// ComputeNesting panics while intervals opened by InsertStart are still open.
func (idx *Index) ComputeNesting() {
	if idx.open != 0 {
		panic("timeline: ComputeNesting with open intervals")
	}

	candidates := make([]int, 0, nestingCandidateHint)

	for current := range idx.ranges {
		cur := &idx.ranges[current]
		cur.Parent = NoIndex

		curEnd := cur.End()
		contained := false

		for c := len(candidates) - 1; c >= 0; c-- {
			cand := &idx.ranges[candidates[c]]
			candEnd := cand.End()

			switch {
			case candEnd < cur.Start:
				candidates = append(candidates[:c], candidates[c+1:]...)
			case candEnd >= curEnd:
				if cand.Parent == NoIndex {
					cur.Parent = candidates[c]
				} else {
					cur.Parent = cand.Parent
				}

				contained = true
			case cand.Start == cur.Start:
				cand.Parent = current
			}

			if contained {
				break
			}
		}

		if !contained {
			candidates = append(candidates, current)
		}
	}

	idx.nested = true
	idx.revision++
}

// nestingCandidateHint is the initial capacity of the candidate list. Under
// perfect nesting only top-level intervals are candidates, so it stays short.
const nestingCandidateHint = 16
