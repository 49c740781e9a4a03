// Package safeconv provides safe numeric type conversion functions that panic on overflow.
package safeconv

import "math"

// MustIntToUint16 converts int to uint16, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToUint16(v int) uint16 {
	if v < 0 || v > math.MaxUint16 {
		panic("safeconv: int to uint16 out of bounds")
	}

	return uint16(v)
}

// MustIntToInt32 converts int to int32, panics on bounds violation.
// Use only when bounds violations are logically impossible.
func MustIntToInt32(v int) int32 {
	if v < math.MinInt32 || v > math.MaxInt32 {
		panic("safeconv: int to int32 out of bounds")
	}

	return int32(v)
}

// Float64ToInt64 converts a float to int64 with rounding to nearest. It
// reports false for NaN, infinities and values outside the int64 range.
func Float64ToInt64(v float64) (int64, bool) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}

	r := math.Round(v)
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if r < math.MinInt64 || r >= math.MaxInt64 {
		return 0, false
	}

	return int64(r), true
}
