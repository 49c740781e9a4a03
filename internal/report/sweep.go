package report

import (
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/timelod/pkg/alg/stats"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
	"github.com/Sumatoshi-tech/timelod/pkg/statecache"
)

// frameSmoothing is the EMA factor for smoothed frame time.
const frameSmoothing = 0.25

// FrameSample is one frame of a sweep.
type FrameSample struct {
	Frame       int           `json:"frame"        yaml:"frame"`
	Window      Span          `json:"window"       yaml:"window"`
	Level       int           `json:"level"        yaml:"level"`
	Primitives  int           `json:"primitives"   yaml:"primitives"`
	Batches     int           `json:"batches"      yaml:"batches"`
	Duration    time.Duration `json:"duration_ns"  yaml:"duration_ns"`
	Smoothed    time.Duration `json:"smoothed_ns"  yaml:"smoothed_ns"`
	ModelDirty  bool          `json:"model_dirty"  yaml:"model_dirty"`
	WindowMoved bool          `json:"window_moved" yaml:"window_moved"`
}

// Sweep summarizes a sequence of frames.
type Sweep struct {
	Source        string        `json:"source"         yaml:"source"`
	Frames        int           `json:"frames"         yaml:"frames"`
	Moved         int           `json:"moved"          yaml:"moved"`
	Timing        stats.Timing  `json:"timing"         yaml:"timing"`
	CacheHits     int64         `json:"cache_hits"     yaml:"cache_hits"`
	CacheMisses   int64         `json:"cache_misses"   yaml:"cache_misses"`
	Invalidations int64         `json:"invalidations"  yaml:"invalidations"`
	Evictions     int64         `json:"evictions"      yaml:"evictions"`
	Slots         int           `json:"slots"          yaml:"slots"`
	Samples       []FrameSample `json:"samples"        yaml:"samples"`

	durations []time.Duration
	smoothing *stats.EMA
}

// NewSweep creates an empty sweep summary.
func NewSweep(source string) *Sweep {
	return &Sweep{Source: source, smoothing: stats.NewEMA(frameSmoothing)}
}

// Add records frame f rendered in d.
func (s *Sweep) Add(f *pipeline.Frame, d time.Duration) {
	s.Samples = append(s.Samples, FrameSample{
		Frame:       s.Frames,
		Window:      spanOf(f.Window),
		Level:       f.Slot.Level,
		Primitives:  f.Primitives(),
		Batches:     len(f.Batches()),
		Duration:    d,
		Smoothed:    s.smoothing.Update(d),
		ModelDirty:  f.ModelDirty,
		WindowMoved: f.WindowMoved,
	})

	s.Frames++
	s.durations = append(s.durations, d)

	if f.WindowMoved {
		s.Moved++
	}
}

// Finish computes the timing summary and records the final cache statistics.
func (s *Sweep) Finish(st statecache.Stats) {
	s.Timing = stats.Summarize(s.durations)

	s.CacheHits = st.Hits
	s.CacheMisses = st.Misses
	s.Invalidations = st.Invalidations
	s.Evictions = st.Evictions
	s.Slots = st.Slots
}

// HitRatio returns the share of cache lookups that hit.
func (s *Sweep) HitRatio() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}

	return float64(s.CacheHits) / float64(total)
}

// WriteSweep encodes s to w.
func WriteSweep(w io.Writer, s *Sweep, format Format) error {
	switch format {
	case FormatTable:
		return writeString(w, sweepTable(s))
	case FormatJSON:
		return marshalAndWrite(s, jsonIndent, w, "json")
	case FormatYAML:
		return marshalAndWrite(s, yaml.Marshal, w, "yaml")
	case FormatHTML:
		return renderSweepChart(w, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
