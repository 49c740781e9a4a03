package lod_test

import (
	"testing"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
)

const benchCount = 200_000

func BenchmarkUpdate_NoMerge(b *testing.B) {
	src := uniformSource{n: benchCount, stride: uniformStride}
	agg := lod.New(lod.DefaultOptions())

	b.ResetTimer()

	for range b.N {
		agg.Update(src, src.span(), nil, 0, benchCount)
	}
}

func BenchmarkUpdate_Merge(b *testing.B) {
	src := randomSource(1, benchCount, randomRows)
	agg := lod.New(lod.Options{MaxPrimitivesPerBatch: benchCount / 10, TriggerCount: 0})

	b.ResetTimer()

	for range b.N {
		agg.Update(src, src.span(), nil, 0, benchCount)
	}
}

func BenchmarkUpdate_ForwardExtension(b *testing.B) {
	src := uniformSource{n: benchCount, stride: uniformStride}
	agg := lod.New(lod.Options{MaxPrimitivesPerBatch: 1_000, TriggerCount: 0})

	b.ResetTimer()

	for range b.N {
		s := agg.Update(src, src.span(), nil, 0, benchCount/2)
		agg.Update(src, src.span(), s, benchCount/2, benchCount)
	}
}
