package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart display constants.
const (
	chartWidth  = "100%"
	chartHeight = "500px"
	pageTitle   = "timelod"
)

func initOpts() charts.GlobalOpts {
	return charts.WithInitializationOpts(opts.Initialization{
		PageTitle: pageTitle,
		Width:     chartWidth,
		Height:    chartHeight,
	})
}

func tooltipOpts() charts.GlobalOpts {
	return charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"})
}

// renderRowChart draws primitives and batches per row.
func renderRowChart(w io.Writer, s *Summary) error {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		initOpts(),
		tooltipOpts(),
		charts.WithTitleOpts(opts.Title{
			Title:    "Primitives per row",
			Subtitle: fmt.Sprintf("%s, %s layout, %d visible intervals", s.Source, s.Mode, s.Visible),
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Row"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Count"}),
	)

	labels := make([]string, len(s.Rows))
	prims := make([]opts.BarData, len(s.Rows))
	batches := make([]opts.BarData, len(s.Rows))

	for i, r := range s.Rows {
		labels[i] = strconv.Itoa(r.Row)
		prims[i] = opts.BarData{Value: r.Primitives}
		batches[i] = opts.BarData{Value: r.Batches}
	}

	bar.SetXAxis(labels).
		AddSeries("Primitives", prims).
		AddSeries("Batches", batches)

	if err := bar.Render(w); err != nil {
		return fmt.Errorf("render row chart: %w", err)
	}

	return nil
}

// renderSweepChart draws primitives and frame time over a sweep.
func renderSweepChart(w io.Writer, s *Sweep) error {
	labels := make([]string, len(s.Samples))
	prims := make([]opts.LineData, len(s.Samples))
	micros := make([]opts.LineData, len(s.Samples))
	smoothed := make([]opts.LineData, len(s.Samples))

	for i, f := range s.Samples {
		labels[i] = strconv.Itoa(f.Frame)
		prims[i] = opts.LineData{Value: f.Primitives}
		micros[i] = opts.LineData{Value: f.Duration.Microseconds()}
		smoothed[i] = opts.LineData{Value: f.Smoothed.Microseconds()}
	}

	geometry := charts.NewLine()
	geometry.SetGlobalOptions(
		initOpts(),
		tooltipOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Primitives per frame", Subtitle: s.Source}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
	)
	geometry.SetXAxis(labels).AddSeries("Primitives", prims)

	timing := charts.NewLine()
	timing.SetGlobalOptions(
		initOpts(),
		tooltipOpts(),
		charts.WithTitleOpts(opts.Title{Title: "Frame time (µs)"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
	)
	timing.SetXAxis(labels).
		AddSeries("Duration", micros).
		AddSeries("Smoothed", smoothed)

	page := components.NewPage()
	page.PageTitle = pageTitle
	page.AddCharts(geometry, timing)

	if err := page.Render(w); err != nil {
		return fmt.Errorf("render sweep chart: %w", err)
	}

	return nil
}
