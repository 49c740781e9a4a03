package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricFramesTotal        = "timelod.render.frames.total"
	metricFrameDuration      = "timelod.render.frame.duration.seconds"
	metricFramePrimitives    = "timelod.render.frame.primitives"
	metricFrameBatches       = "timelod.render.frame.batches"
	metricCacheHitsTotal     = "timelod.cache.hits.total"
	metricCacheMissesTotal   = "timelod.cache.misses.total"
	metricCacheInvalidations = "timelod.cache.invalidations.total"

	attrModelDirty  = "model_dirty"
	attrWindowMoved = "window_moved"
)

// frameBucketBoundaries covers 50µs to 1s; a frame above 16ms misses 60 Hz.
var frameBucketBoundaries = []float64{0.00005, 0.0001, 0.0005, 0.001, 0.004, 0.008, 0.016, 0.033, 0.1, 0.25, 1}

// countBucketBoundaries covers primitive and batch counts per frame.
var countBucketBoundaries = []float64{1, 10, 100, 1_000, 10_000, 100_000, 1_000_000}

// RenderMetrics holds OTel instruments for frame rendering.
type RenderMetrics struct {
	frames        metric.Int64Counter
	frameDuration metric.Float64Histogram
	primitives    metric.Int64Histogram
	batches       metric.Int64Histogram
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	invalidations metric.Int64Counter
}

// FrameStats describes one rendered frame, decoupled from pipeline types.
// Cache counts are deltas since the previous frame.
type FrameStats struct {
	Duration      time.Duration
	Primitives    int
	Batches       int
	ModelDirty    bool
	WindowMoved   bool
	CacheHits     int64
	CacheMisses   int64
	Invalidations int64
}

// NewRenderMetrics creates render metric instruments from the given meter.
func NewRenderMetrics(mt metric.Meter) (*RenderMetrics, error) {
	in := &instruments{meter: mt}

	rm := &RenderMetrics{
		frames:        in.counter(metricFramesTotal, "Total frames rendered", "{frame}"),
		frameDuration: in.seconds(metricFrameDuration, "Frame render duration in seconds", frameBucketBoundaries),
		primitives:    in.sizes(metricFramePrimitives, "Primitives emitted per frame", "{primitive}"),
		batches:       in.sizes(metricFrameBatches, "Batches emitted per frame", "{batch}"),
		cacheHits:     in.counter(metricCacheHitsTotal, "Render state cache hits", "{hit}"),
		cacheMisses:   in.counter(metricCacheMissesTotal, "Render state cache misses", "{miss}"),
		invalidations: in.counter(metricCacheInvalidations, "Render state cache invalidations", "{invalidation}"),
	}

	if in.err != nil {
		return nil, in.err
	}

	return rm, nil
}

// RecordFrame records one frame. Safe to call on a nil receiver (no-op).
func (rm *RenderMetrics) RecordFrame(ctx context.Context, stats FrameStats) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.Bool(attrModelDirty, stats.ModelDirty),
		attribute.Bool(attrWindowMoved, stats.WindowMoved),
	)

	rm.frames.Add(ctx, 1, attrs)
	rm.frameDuration.Record(ctx, stats.Duration.Seconds(), attrs)
	rm.primitives.Record(ctx, int64(stats.Primitives))
	rm.batches.Record(ctx, int64(stats.Batches))
	rm.cacheHits.Add(ctx, stats.CacheHits)
	rm.cacheMisses.Add(ctx, stats.CacheMisses)
	rm.invalidations.Add(ctx, stats.Invalidations)
}
