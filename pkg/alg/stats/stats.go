// Package stats summarizes frame-time series.
// Standard deviation is the population form (÷n, not ÷(n−1)).
package stats

import (
	"math"
	"slices"
	"time"
)

// Well-known percentile thresholds.
const (
	PercentileMedian = 0.5
	PercentileP95    = 0.95
	PercentileP99    = 0.99
)

// Timing summarizes a series of durations.
type Timing struct {
	Count  int           `json:"count"     yaml:"count"`
	Total  time.Duration `json:"total_ns"  yaml:"total_ns"`
	Mean   time.Duration `json:"mean_ns"   yaml:"mean_ns"`
	StdDev time.Duration `json:"stddev_ns" yaml:"stddev_ns"`
	P50    time.Duration `json:"p50_ns"    yaml:"p50_ns"`
	P95    time.Duration `json:"p95_ns"    yaml:"p95_ns"`
	P99    time.Duration `json:"p99_ns"    yaml:"p99_ns"`
	Max    time.Duration `json:"max_ns"    yaml:"max_ns"`
}

// Summarize computes a Timing over samples. The input is not modified.
// Returns the zero Timing for an empty slice.
func Summarize(samples []time.Duration) Timing {
	if len(samples) == 0 {
		return Timing{}
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	var total time.Duration

	for _, d := range sorted {
		total += d
	}

	mean := float64(total) / float64(len(sorted))

	var sumSq float64

	for _, d := range sorted {
		diff := float64(d) - mean
		sumSq += diff * diff
	}

	return Timing{
		Count:  len(sorted),
		Total:  total,
		Mean:   round(mean),
		StdDev: round(math.Sqrt(sumSq / float64(len(sorted)))),
		P50:    Percentile(sorted, PercentileMedian),
		P95:    Percentile(sorted, PercentileP95),
		P99:    Percentile(sorted, PercentileP99),
		Max:    sorted[len(sorted)-1],
	}
}

// Percentile returns the p-th percentile of sorted using linear interpolation.
// sorted must be in ascending order and p in [0, 1].
// Returns 0 for an empty slice.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	count := len(sorted)
	if count == 0 {
		return 0
	}

	idx := p * float64(count-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper || upper >= count {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return round(float64(sorted[lower])*(1-frac) + float64(sorted[upper])*frac)
}

func round(ns float64) time.Duration {
	return time.Duration(math.Round(ns))
}
