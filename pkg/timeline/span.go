package timeline

// Span is a half-open time range [Start, End).
type Span struct {
	Start int64
	End   int64
}

// Duration returns End - Start.
func (s Span) Duration() int64 {
	return s.End - s.Start
}

// Contains reports whether other lies within s.
func (s Span) Contains(other Span) bool {
	return s.Start <= other.Start && s.End >= other.End
}

// Clamp limits t to [Start, End].
func (s Span) Clamp(t int64) int64 {
	return min(max(t, s.Start), s.End)
}
