package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
)

const percentageValue = 100

// maxSampleRows bounds the per-frame table of a sweep.
const maxSampleRows = 20

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func count(n int) string {
	return humanize.Comma(int64(n))
}

func spanString(s Span) string {
	return fmt.Sprintf("%s .. %s (%s)",
		time.Duration(s.Start), time.Duration(s.End), time.Duration(s.End-s.Start))
}

func summaryTable(s *Summary) string {
	overview := newTable()
	overview.AppendRows([]table.Row{
		{"Source", s.Source},
		{"Intervals", count(s.Intervals)},
		{"Threads", count(s.Threads)},
		{"Mode", s.Mode},
		{"Window", spanString(s.Window)},
		{"State", spanString(s.State)},
		{"Visible", count(s.Visible)},
		{"Merging", mergingString(s)},
		{"Primitives", count(s.Primitives)},
		{"Batches", count(s.Batches)},
		{"Vertices", count(s.Vertices)},
		{"Geometry", humanize.IBytes(s.GeometryBytes)},
	})

	passes := newTable()
	passes.AppendHeader(table.Row{"Pass", "Batches", "Primitives"})

	for _, p := range s.Passes {
		passes.AppendRow(table.Row{p.Name, count(p.Batches), count(p.Primitives)})
	}

	rows := newTable()
	rows.AppendHeader(table.Row{"Row", "Batches", "Primitives", "Vertices"})

	for _, r := range s.Rows {
		rows.AppendRow(table.Row{r.Row, count(r.Batches), count(r.Primitives), count(r.Vertices)})
	}

	rows.AppendFooter(table.Row{fmt.Sprintf("Total: %d rows", len(s.Rows))})

	return strings.Join([]string{
		overview.Render(),
		"Passes:\n" + passes.Render(),
		"Rows:\n" + rows.Render(),
	}, "\n\n") + "\n"
}

func mergingString(s *Summary) string {
	if !s.Merging {
		return "off"
	}

	return "below " + time.Duration(s.Threshold).String()
}

func sweepTable(s *Sweep) string {
	overview := newTable()
	overview.AppendRows([]table.Row{
		{"Source", s.Source},
		{"Frames", count(s.Frames)},
		{"Window moves", count(s.Moved)},
		{"Mean frame", s.Timing.Mean.String()},
		{"P50 frame", s.Timing.P50.String()},
		{"P95 frame", s.Timing.P95.String()},
		{"Max frame", s.Timing.Max.String()},
		{"Cache hits", humanize.Comma(s.CacheHits)},
		{"Cache misses", humanize.Comma(s.CacheMisses)},
		{"Hit ratio", fmt.Sprintf("%.1f%%", s.HitRatio()*percentageValue)},
		{"Invalidations", humanize.Comma(s.Invalidations)},
		{"Evictions", humanize.Comma(s.Evictions)},
		{"Slots", count(s.Slots)},
	})

	frames := newTable()
	frames.AppendHeader(table.Row{"Frame", "Level", "Window", "Primitives", "Batches", "Duration"})

	shown := s.Samples[:min(len(s.Samples), maxSampleRows)]
	for _, f := range shown {
		frames.AppendRow(table.Row{
			f.Frame, f.Level, spanString(f.Window), count(f.Primitives), count(f.Batches), f.Duration.String(),
		})
	}

	if len(s.Samples) > len(shown) {
		frames.AppendFooter(table.Row{fmt.Sprintf("... %d more frames", len(s.Samples)-len(shown))})
	}

	return overview.Render() + "\n\nFrames:\n" + frames.Render() + "\n"
}
