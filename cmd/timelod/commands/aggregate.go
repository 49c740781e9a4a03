package commands

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timelod/internal/observability"
	"github.com/Sumatoshi-tech/timelod/internal/report"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// ErrInvalidNote is returned for a malformed --note value.
var ErrInvalidNote = errors.New("invalid note, want item:text")

// AggregateCommand renders one frame and reports its geometry.
type AggregateCommand struct {
	input     inputFlags
	window    string
	collapsed bool
	format    string
	output    string
	selected  int
	notes     []string
}

// NewAggregateCommand creates the aggregate command.
func NewAggregateCommand() *cobra.Command {
	ac := &AggregateCommand{}

	cmd := &cobra.Command{
		Use:   "aggregate [trace]",
		Short: "Aggregate one window of a trace into render batches",
		Long: `Load a Chrome trace-event file (optionally LZ4 compressed) or a synthetic
workload, render one frame and report the emitted primitives and batches.`,
		Args: cobra.MaximumNArgs(1),
		RunE: ac.run,
	}

	ac.input.register(cmd)

	cmd.Flags().StringVar(&ac.window, "window", "", "Selection to zoom to, start:end in ns or durations (e.g. 1ms:3ms)")
	cmd.Flags().BoolVar(&ac.collapsed, "collapsed", false, "Use the collapsed (nesting depth) row layout")
	cmd.Flags().StringVar(&ac.format, "format", string(report.FormatTable), "Output format: table, json, yaml, html")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write the report to a file instead of stdout")
	cmd.Flags().IntVar(&ac.selected, "select", timeline.NoIndex, "Highlight the interval at this index")
	cmd.Flags().StringArrayVar(&ac.notes, "note", nil, "Attach a note, item:text (repeatable)")

	return cmd
}

func (ac *AggregateCommand) run(cmd *cobra.Command, args []string) (err error) {
	format, err := report.ParseFormat(ac.format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	s, err := openSession(ctx, &ac.input, args, observability.ModeCLI, false)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, s.close())
	}()

	p, win, err := s.newPipeline()
	if err != nil {
		return err
	}

	if ac.window != "" {
		sel, parseErr := parseWindow(ac.window)
		if parseErr != nil {
			return parseErr
		}

		win.SetSelection(sel.Start, sel.End, time.Now())
	}

	p.SetExpanded(!ac.collapsed)
	p.SetSelectedItem(ac.selected)

	if err = addNotes(p.Notes(), ac.notes); err != nil {
		return err
	}

	frame, err := p.Render(ctx, win)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	summary := report.Build(report.Info{
		Source:    s.source,
		Intervals: s.trace.Index.Count(),
		Threads:   len(s.trace.Threads),
	}, frame)

	if ac.output == "" {
		return report.Write(cmd.OutOrStdout(), summary, format)
	}

	f, err := os.Create(ac.output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	defer func() {
		err = errors.Join(err, f.Close())
	}()

	return report.Write(f, summary, format)
}

func addNotes(notes *pipeline.Notes, raw []string) error {
	for _, r := range raw {
		item, text, ok := strings.Cut(r, ":")
		if !ok {
			return fmt.Errorf("%w: %q", ErrInvalidNote, r)
		}

		i, err := strconv.Atoi(item)
		if err != nil {
			return fmt.Errorf("%w: %q", ErrInvalidNote, r)
		}

		notes.Add(i, text)
	}

	return nil
}
