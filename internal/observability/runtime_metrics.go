package observability

import (
	"context"
	"fmt"
	"math"
	runtimemetrics "runtime/metrics"

	"go.opentelemetry.io/otel/metric"
)

const (
	metricGoroutines = "timelod.runtime.goroutines"
	metricHeapLive   = "timelod.runtime.heap.objects.bytes"
	metricHeapAllocs = "timelod.runtime.heap.allocs.bytes"

	sampleGoroutines = "/sched/goroutines:goroutines"
	sampleHeapLive   = "/memory/classes/heap/objects:bytes"
	sampleHeapAllocs = "/gc/heap/allocs:bytes"
)

// RuntimeMetrics exposes goroutine and heap samples as OTel instruments.
type RuntimeMetrics struct {
	goroutines metric.Int64ObservableGauge
	heapLive   metric.Int64ObservableGauge
	heapAllocs metric.Int64ObservableCounter
}

// NewRuntimeMetrics creates instruments read from runtime/metrics on every
// collection cycle.
func NewRuntimeMetrics(mt metric.Meter) (*RuntimeMetrics, error) {
	in := &instruments{meter: mt}

	rm := &RuntimeMetrics{
		goroutines: in.gauge(metricGoroutines, "Current number of live goroutines", "{goroutine}"),
		heapLive:   in.gauge(metricHeapLive, "Bytes occupied by live and unswept heap objects", "By"),
		heapAllocs: in.cumulative(metricHeapAllocs, "Cumulative bytes allocated on the heap", "By"),
	}

	if in.err != nil {
		return nil, in.err
	}

	_, err := mt.RegisterCallback(rm.observe, rm.goroutines, rm.heapLive, rm.heapAllocs)
	if err != nil {
		return nil, fmt.Errorf("register runtime metrics callback: %w", err)
	}

	return rm, nil
}

func (rm *RuntimeMetrics) observe(_ context.Context, obs metric.Observer) error {
	samples := []runtimemetrics.Sample{
		{Name: sampleGoroutines},
		{Name: sampleHeapLive},
		{Name: sampleHeapAllocs},
	}

	runtimemetrics.Read(samples)

	for idx := range samples {
		val, ok := sampleInt64Value(samples[idx].Value)
		if !ok {
			continue
		}

		switch samples[idx].Name {
		case sampleGoroutines:
			obs.ObserveInt64(rm.goroutines, val)
		case sampleHeapLive:
			obs.ObserveInt64(rm.heapLive, val)
		case sampleHeapAllocs:
			obs.ObserveInt64(rm.heapAllocs, val)
		}
	}

	return nil
}

// sampleInt64Value extracts an int64 from a runtime/metrics value.
func sampleInt64Value(val runtimemetrics.Value) (int64, bool) {
	switch val.Kind() {
	case runtimemetrics.KindUint64:
		u := val.Uint64()
		if u > uint64(math.MaxInt64) {
			return math.MaxInt64, true
		}

		return int64(u), true
	case runtimemetrics.KindFloat64:
		return int64(val.Float64()), true
	case runtimemetrics.KindBad, runtimemetrics.KindFloat64Histogram:
		return 0, false
	default:
		return 0, false
	}
}
