// Package statecache maps windows onto cached per-slot render state.
//
// Windows are addressed by exponential quantization of the trace: level 0 is
// the whole trace, every further level halves the cell span, and the deepest
// cell that still strictly contains the window wins. Small pans inside one
// cell therefore reuse the same slot while zooming changes the level.
package statecache

import (
	"log/slog"

	"github.com/Sumatoshi-tech/timelod/pkg/alg/lru"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// maxLevel bounds quantization depth; int64 spans vanish long before it.
const maxLevel = 63

// Key addresses a slot.
type Key struct {
	Level  int
	Offset int64
}

// Slot is the cached state of one quantization cell.
type Slot struct {
	Key   Key
	Start int64
	End   int64

	states []any
}

// Span returns the slot's time range.
func (s *Slot) Span() timeline.Span {
	return timeline.Span{Start: s.Start, End: s.End}
}

// State returns the state stored for a render pass, or nil.
func (s *Slot) State(pass int) any {
	if pass < 0 || pass >= len(s.states) {
		return nil
	}

	return s.states[pass]
}

// SetState stores the state of a render pass.
func (s *Slot) SetState(pass int, state any) {
	if pass >= len(s.states) {
		s.states = append(s.states, make([]any, pass+1-len(s.states))...)
	}

	s.states[pass] = state
}

// Stats reports cache activity.
type Stats struct {
	Hits          int64
	Misses        int64
	Invalidations int64
	Evictions     int64
	Slots         int
}

// Option configures a Cache.
type Option func(*Cache)

// WithCapacity bounds the number of slots kept. Zero keeps every slot.
func WithCapacity(n int) Option {
	return func(c *Cache) {
		c.capacity = max(n, 0)
	}
}

// WithLogger sets the logger for invalidation and eviction events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// Cache holds slots for one model. It is not safe for concurrent use.
type Cache struct {
	slots    *lru.Cache[Key, *Slot]
	capacity int
	logger   *slog.Logger

	trace       timeline.Span
	revision    uint64
	initialized bool

	invalidations int64
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{logger: slog.Default()}

	for _, opt := range opts {
		opt(c)
	}

	c.slots = lru.New(
		lru.WithMaxEntries[Key, *Slot](c.capacity),
		lru.WithOnEvict(func(key Key, _ *Slot) {
			c.logger.Debug("statecache: slot evicted", "level", key.Level, "offset", key.Offset)
		}),
	)

	return c
}

// Lookup returns the slot addressing window, creating it on first use. A
// revision or trace different from the previous lookup drops all slots first.
func (c *Cache) Lookup(trace, window timeline.Span, revision uint64) *Slot {
	if !c.initialized || revision != c.revision || trace != c.trace {
		if c.initialized {
			c.Invalidate()
		}

		c.initialized = true
		c.revision = revision
		c.trace = trace
	}

	key, cell := Quantize(trace, window)

	if slot, ok := c.slots.Get(key); ok {
		return slot
	}

	slot := &Slot{Key: key, Start: cell.Start, End: cell.End}
	c.slots.Put(key, slot)

	return slot
}

// Invalidate drops every slot.
func (c *Cache) Invalidate() {
	if c.slots.Len() > 0 {
		c.logger.Debug("statecache: invalidated", "slots", c.slots.Len())
	}

	c.slots.Clear()
	c.invalidations++
}

// Len returns the number of live slots.
func (c *Cache) Len() int {
	return c.slots.Len()
}

// Stats returns current cache statistics.
func (c *Cache) Stats() Stats {
	s := c.slots.Stats()

	return Stats{
		Hits:          s.Hits,
		Misses:        s.Misses,
		Invalidations: c.invalidations,
		Evictions:     s.Evictions,
		Slots:         s.Entries,
	}
}

// Quantize returns the key and time range of the deepest quantization cell
// that strictly contains window. Level 0 is the trace itself.
func Quantize(trace, window timeline.Span) (Key, timeline.Span) {
	key := Key{}
	cell := trace
	duration := trace.Duration()

	for level := 1; level <= maxLevel; level++ {
		span := duration >> level
		if span <= 0 {
			break
		}

		offset := (window.Start - trace.Start + span/2) / span
		start := trace.Start + offset*span - span/2
		end := start + span

		if start >= window.Start || end <= window.End {
			break
		}

		key = Key{Level: level, Offset: offset}
		cell = timeline.Span{Start: start, End: end}
	}

	return key, cell
}
