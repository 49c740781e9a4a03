// Package window tracks the trace extent, the rendered window and the user
// selection, and eases the window toward the selection over time.
//
// The controller has no timer of its own. Callers drive easing by calling
// Tick with the current time, typically once per frame.
package window

import (
	"time"

	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Defaults for Controller options.
const (
	DefaultMaxZoomFactor = int64(1 << 10)
	DefaultMinRange      = int64(500)
	DefaultEaseDelay     = 501 * time.Millisecond
	DefaultEaseInterval  = 100 * time.Millisecond
)

// Option configures a Controller.
type Option func(*Controller)

// WithMaxZoomFactor sets the largest allowed window/selection ratio.
func WithMaxZoomFactor(factor int64) Option {
	return func(c *Controller) {
		c.maxZoomFactor = max(factor, 1)
	}
}

// WithMinRange sets the smallest selection duration used for zoom decisions.
func WithMinRange(d int64) Option {
	return func(c *Controller) {
		c.minRange = max(d, 1)
	}
}

// WithEasing sets the delay before the first easing step and the interval
// between later steps.
func WithEasing(delay, interval time.Duration) Option {
	return func(c *Controller) {
		c.easeDelay = delay
		c.easeInterval = interval
	}
}

// Controller is the window state machine. It is not safe for concurrent use.
type Controller struct {
	trace     timeline.Span
	window    timeline.Span
	selection timeline.Span

	maxZoomFactor int64
	minRange      int64
	easeDelay     time.Duration
	easeInterval  time.Duration

	easing bool
	due    time.Time
}

// New creates a controller with an empty trace.
func New(opts ...Option) *Controller {
	c := &Controller{
		maxZoomFactor: DefaultMaxZoomFactor,
		minRange:      DefaultMinRange,
		easeDelay:     DefaultEaseDelay,
		easeInterval:  DefaultEaseInterval,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Trace returns the full data extent.
func (c *Controller) Trace() timeline.Span { return c.trace }

// Window returns the rendered extent.
func (c *Controller) Window() timeline.Span { return c.window }

// Selection returns the user-focused range.
func (c *Controller) Selection() timeline.Span { return c.selection }

// MaxZoomFactor returns the configured window/selection ratio limit.
func (c *Controller) MaxZoomFactor() int64 { return c.maxZoomFactor }

// Easing reports whether a window move is pending.
func (c *Controller) Easing() bool { return c.easing }

// SetTrace resets the controller to a new trace. The window covers the whole
// trace and the selection is empty at its start.
func (c *Controller) SetTrace(start, end int64) {
	c.trace = timeline.Span{Start: start, End: end}
	c.window = c.trace
	c.selection = timeline.Span{Start: start, End: start}
	c.easing = false
}

// SetSelection changes the selection and rebuilds the window. Small changes
// arm easing instead of moving the window at once; the first step is due
// EaseDelay after now.
func (c *Controller) SetSelection(start, end int64, now time.Time) {
	if c.selection.Start == start && c.selection.End == end {
		return
	}

	c.easing = false
	c.selection = timeline.Span{Start: start, End: end}
	c.rebuild(now)
}

// rebuild grows or shrinks the window so the selection stays within
// maxZoomFactor of it.
func (c *Controller) rebuild(now time.Time) {
	shown := max(c.selection.Duration(), c.minRange)

	switch {
	case c.trace.Duration()/shown < c.maxZoomFactor:
		c.window = c.trace
	case c.window.Duration()/shown > c.maxZoomFactor,
		c.window.Duration()/shown*2 < c.maxZoomFactor,
		c.selection.Start < c.window.Start,
		c.selection.End > c.window.End:
		keep := shown*c.maxZoomFactor/2 - shown

		start := c.selection.Start - keep
		if start < c.trace.Start {
			keep += c.trace.Start - start
			start = c.trace.Start
		}

		end := c.selection.End + keep
		if end > c.trace.End {
			start = max(c.trace.Start, start-(end-c.trace.End))
			end = c.trace.End
		}

		c.window = timeline.Span{Start: start, End: end}
	default:
		c.easing = true
		c.due = now.Add(c.easeDelay)
	}

	c.clampSelection()
}

// Tick runs one easing step when one is due and reports whether the window
// moved. It is a no-op when easing is not armed.
func (c *Controller) Tick(now time.Time) bool {
	if !c.easing || now.Before(c.due) {
		return false
	}

	c.easing = false

	offset := (c.selection.End - c.window.End + c.selection.Start - c.window.Start) / 2
	if offset == 0 ||
		(offset < 0 && c.window.Start == c.trace.Start) ||
		(offset > 0 && c.window.End == c.trace.End) {
		return false
	}

	selDuration := c.selection.Duration()

	switch {
	case offset > selDuration:
		offset = (offset + selDuration) / 2
	case offset < -selDuration:
		offset = (offset - selDuration) / 2
	}

	w := c.window

	w.Start += offset
	if w.Start < c.trace.Start {
		w.End += c.trace.Start - w.Start
		w.Start = c.trace.Start
	}

	w.End += offset
	if w.End > c.trace.End {
		w.Start -= w.End - c.trace.End
		w.End = c.trace.End
	}

	c.window = w
	c.clampSelection()

	c.easing = true
	c.due = now.Add(c.easeInterval)

	return true
}

func (c *Controller) clampSelection() {
	start := c.window.Clamp(c.selection.Start)
	end := min(max(start, c.selection.End), c.window.End)
	c.selection = timeline.Span{Start: start, End: end}
}
