package lru

// Stats holds cache performance metrics.
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	Entries    int
	MaxEntries int // 0 when unbounded.
}

// HitRate returns the cache hit rate as a fraction (0.0 to 1.0).
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns current cache statistics.
func (c *Cache[K, V]) Stats() Stats {
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		Evictions:  c.evictions,
		Entries:    len(c.entries),
		MaxEntries: c.maxEntries,
	}
}
