package timeline_test

import (
	"testing"

	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

const (
	benchIntervals = 100_000
	benchStride    = int64(10)
)

func buildBenchIndex(b *testing.B) *timeline.Index {
	b.Helper()

	idx := timeline.New()
	for i := range benchIntervals {
		start := int64(i) * benchStride
		idx.Insert(start, benchStride-1, int32(i%8))
	}

	idx.ComputeNesting()

	return idx
}

func BenchmarkInsert_Sequential(b *testing.B) {
	for range b.N {
		idx := timeline.New()
		for i := range benchIntervals {
			idx.Insert(int64(i)*benchStride, benchStride-1, 0)
		}
	}
}

func BenchmarkComputeNesting(b *testing.B) {
	idx := buildBenchIndex(b)

	b.ResetTimer()

	for range b.N {
		idx.ComputeNesting()
	}
}

func BenchmarkFirstIndex(b *testing.B) {
	idx := buildBenchIndex(b)
	span := int64(benchIntervals) * benchStride

	b.ResetTimer()

	for i := range b.N {
		idx.FirstIndex(int64(i) % span)
	}
}

func BenchmarkLastIndex(b *testing.B) {
	idx := buildBenchIndex(b)
	span := int64(benchIntervals) * benchStride

	b.ResetTimer()

	for i := range b.N {
		idx.LastIndex(int64(i) % span)
	}
}
