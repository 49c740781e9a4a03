// Package report summarizes rendered frames and sweeps and writes them as
// terminal tables, JSON, YAML or HTML charts.
package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"unsafe"

	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/timelod/pkg/lod"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Format is an output encoding.
type Format string

// Supported formats.
const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
	FormatHTML  Format = "html"
)

// Formats lists every supported format.
var Formats = []Format{FormatTable, FormatJSON, FormatYAML, FormatHTML}

// ErrUnsupportedFormat is returned for an unknown output format.
var ErrUnsupportedFormat = errors.New("report: unsupported format")

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(s)
	if !slices.Contains(Formats, f) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, s)
	}

	return f, nil
}

// Geometry sizes in bytes.
var (
	vertexBytes = uint64(unsafe.Sizeof(lod.Vertex{}))
	indexBytes  = uint64(unsafe.Sizeof(uint16(0)))
)

// Span is a serializable time range in nanoseconds.
type Span struct {
	Start int64 `json:"start" yaml:"start"`
	End   int64 `json:"end"   yaml:"end"`
}

func spanOf(s timeline.Span) Span {
	return Span{Start: s.Start, End: s.End}
}

// Info describes the rendered input.
type Info struct {
	Source    string
	Intervals int
	Threads   int
}

// RowSummary is the item geometry of one row.
type RowSummary struct {
	Row        int `json:"row"        yaml:"row"`
	Batches    int `json:"batches"    yaml:"batches"`
	Primitives int `json:"primitives" yaml:"primitives"`
	Vertices   int `json:"vertices"   yaml:"vertices"`
}

// PassSummary is the geometry one pass emitted.
type PassSummary struct {
	Name       string `json:"name"       yaml:"name"`
	Batches    int    `json:"batches"    yaml:"batches"`
	Primitives int    `json:"primitives" yaml:"primitives"`
}

// Summary describes one rendered frame.
type Summary struct {
	Source        string        `json:"source"               yaml:"source"`
	Intervals     int           `json:"intervals"            yaml:"intervals"`
	Threads       int           `json:"threads"              yaml:"threads"`
	Mode          string        `json:"mode"                 yaml:"mode"`
	Window        Span          `json:"window"               yaml:"window"`
	State         Span          `json:"state"                yaml:"state"`
	Visible       int           `json:"visible"              yaml:"visible"`
	Merging       bool          `json:"merging"              yaml:"merging"`
	Threshold     int64         `json:"threshold,omitempty"  yaml:"threshold,omitempty"`
	Primitives    int           `json:"primitives"           yaml:"primitives"`
	Batches       int           `json:"batches"              yaml:"batches"`
	Vertices      int           `json:"vertices"             yaml:"vertices"`
	GeometryBytes uint64        `json:"geometry_bytes"       yaml:"geometry_bytes"`
	Passes        []PassSummary `json:"passes"               yaml:"passes"`
	Rows          []RowSummary  `json:"rows"                 yaml:"rows"`
}

// Build summarizes frame f.
func Build(info Info, f *pipeline.Frame) *Summary {
	s := &Summary{
		Source:    info.Source,
		Intervals: info.Intervals,
		Threads:   info.Threads,
		Mode:      f.Mode.String(),
		Window:    spanOf(f.Window),
		State:     spanOf(f.State),
		Visible:   f.To - f.From,
	}

	for _, p := range f.Passes {
		ps := PassSummary{Name: p.Name, Batches: len(p.Batches)}

		for _, b := range p.Batches {
			ps.Primitives += len(b.Primitives)
			s.Vertices += len(b.Vertices)
			s.GeometryBytes += uint64(len(b.Vertices))*vertexBytes + uint64(len(b.Indices))*indexBytes
		}

		s.Primitives += ps.Primitives
		s.Batches += ps.Batches
		s.Passes = append(s.Passes, ps)
	}

	items, ok := f.Pass(pipeline.PassItems)
	if !ok {
		return s
	}

	if state, isState := items.State.(*lod.State); isState {
		s.Merging, s.Threshold = state.Merging(f.Mode)
	}

	s.Rows = rowSummaries(items.Batches)

	return s
}

func rowSummaries(batches []*lod.Batch) []RowSummary {
	byRow := make(map[int]*RowSummary)

	for _, b := range batches {
		r, ok := byRow[b.Row]
		if !ok {
			r = &RowSummary{Row: b.Row}
			byRow[b.Row] = r
		}

		r.Batches++
		r.Primitives += len(b.Primitives)
		r.Vertices += len(b.Vertices)
	}

	out := make([]RowSummary, 0, len(byRow))
	for _, r := range byRow {
		out = append(out, *r)
	}

	slices.SortFunc(out, func(a, b RowSummary) int { return a.Row - b.Row })

	return out
}

// Write encodes s to w.
func Write(w io.Writer, s *Summary, format Format) error {
	switch format {
	case FormatTable:
		return writeString(w, summaryTable(s))
	case FormatJSON:
		return marshalAndWrite(s, jsonIndent, w, "json")
	case FormatYAML:
		return marshalAndWrite(s, yaml.Marshal, w, "yaml")
	case FormatHTML:
		return renderRowChart(w, s)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func jsonIndent(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}

	return append(data, '\n'), nil
}

// marshalAndWrite marshals data and writes the result to writer.
func marshalAndWrite(data any, marshal func(any) ([]byte, error), writer io.Writer, label string) error {
	encoded, err := marshal(data)
	if err != nil {
		return fmt.Errorf("%s encode: %w", label, err)
	}

	_, writeErr := writer.Write(encoded)
	if writeErr != nil {
		return fmt.Errorf("%s write: %w", label, writeErr)
	}

	return nil
}

func writeString(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("table write: %w", err)
	}

	return nil
}
