package stats

import "time"

// EMA smooths a duration series with a fixed factor.
type EMA struct {
	alpha       float64
	value       float64
	initialized bool
}

// NewEMA creates an EMA with the given smoothing factor alpha in (0, 1].
func NewEMA(alpha float64) *EMA {
	return &EMA{alpha: alpha}
}

// Update feeds d and returns the smoothed duration.
// The first call initializes the average to d.
func (e *EMA) Update(d time.Duration) time.Duration {
	if !e.initialized {
		e.value = float64(d)
		e.initialized = true

		return d
	}

	e.value = e.alpha*float64(d) + (1-e.alpha)*e.value

	return round(e.value)
}

// Value returns the current average (0 before any Update).
func (e *EMA) Value() time.Duration {
	return round(e.value)
}
