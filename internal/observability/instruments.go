package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// instruments creates OTel instruments from one meter and keeps the first
// creation error, so a metric set is checked once after construction.
type instruments struct {
	meter metric.Meter
	err   error
}

func (in *instruments) keep(name string, err error) {
	if err != nil && in.err == nil {
		in.err = fmt.Errorf("create %s: %w", name, err)
	}
}

func (in *instruments) counter(name, desc, unit string) metric.Int64Counter {
	c, err := in.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}

// seconds creates a latency histogram in seconds.
func (in *instruments) seconds(name, desc string, bounds []float64) metric.Float64Histogram {
	h, err := in.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(bounds...),
	)
	in.keep(name, err)

	return h
}

// sizes creates a histogram of per-frame counts.
func (in *instruments) sizes(name, desc, unit string) metric.Int64Histogram {
	h, err := in.meter.Int64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
		metric.WithExplicitBucketBoundaries(countBucketBoundaries...),
	)
	in.keep(name, err)

	return h
}

func (in *instruments) gauge(name, desc, unit string) metric.Int64ObservableGauge {
	g, err := in.meter.Int64ObservableGauge(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return g
}

func (in *instruments) cumulative(name, desc, unit string) metric.Int64ObservableCounter {
	c, err := in.meter.Int64ObservableCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	in.keep(name, err)

	return c
}
