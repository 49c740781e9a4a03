package lod_test

import (
	"math/rand/v2"

	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// item is one interval of a test source.
type item struct {
	start    int64
	duration int64
	group    int32
	expanded int
	collapse int
	height   float32
}

// itemSource is a slice-backed timeline.Source.
type itemSource []item

func (s itemSource) Count() int { return len(s) }
func (s itemSource) StartTime(i int) int64 { return s[i].start }
func (s itemSource) Duration(i int) int64 { return s[i].duration }
func (s itemSource) GroupID(i int) int32 { return s[i].group }
func (s itemSource) ExpandedRow(i int) int { return s[i].expanded }
func (s itemSource) CollapsedRow(i int) int { return s[i].collapse }
func (s itemSource) RelativeHeight(i int) float32 { return s[i].height }
func (s itemSource) Color(i int) timeline.RGB { return timeline.ColorByGroup(s[i].group) }

// uniformSource is n unit intervals spaced stride apart on a single row.
type uniformSource struct {
	n      int
	stride int64
}

func (s uniformSource) Count() int { return s.n }
func (s uniformSource) StartTime(i int) int64 { return int64(i) * s.stride }
func (s uniformSource) Duration(int) int64 { return 1 }
func (s uniformSource) GroupID(int) int32 { return 0 }
func (s uniformSource) ExpandedRow(int) int { return 0 }
func (s uniformSource) CollapsedRow(int) int { return 0 }
func (s uniformSource) RelativeHeight(int) float32 { return 1 }
func (s uniformSource) Color(int) timeline.RGB { return timeline.RGB{} }

func (s uniformSource) span() timeline.Span {
	return timeline.Span{Start: 0, End: int64(s.n) * s.stride}
}

// gappedSource is a uniformSource whose every-th interval starts gap later
// than the stride alone would place it.
type gappedSource struct {
	uniformSource
	every int
	gap   int64
}

func (s gappedSource) StartTime(i int) int64 {
	return s.uniformSource.StartTime(i) + int64(i/s.every)*s.gap
}

func (s gappedSource) span() timeline.Span {
	return timeline.Span{Start: 0, End: s.StartTime(s.n-1) + 1}
}

// randomSource builds n start-ordered intervals spread over rows, with
// varying gaps, durations and heights.
func randomSource(seed uint64, n, rows int) itemSource {
	rng := rand.New(rand.NewPCG(seed, seed))
	src := make(itemSource, n)

	var t int64

	for i := range src {
		t += rng.Int64N(20)
		src[i] = item{
			start:    t,
			duration: 1 + rng.Int64N(40),
			group:    rng.Int32N(int32(rows)),
			collapse: rng.IntN(2),
			height:   0.25 + rng.Float32()*0.75,
		}
		src[i].expanded = int(src[i].group)
	}

	return src
}

func (s itemSource) span() timeline.Span {
	if len(s) == 0 {
		return timeline.Span{}
	}

	span := timeline.Span{Start: s[0].start, End: s[0].start}
	for _, it := range s {
		span.End = max(span.End, it.start+it.duration)
	}

	return span
}
