package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timelod/internal/observability"
	"github.com/Sumatoshi-tech/timelod/internal/report"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
	"github.com/Sumatoshi-tech/timelod/pkg/statecache"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

// Sweep shape: the first half of the frames zooms in by up to zoomLevels
// halvings, the second half pans the narrowest selection by a quarter of
// its duration per frame.
const (
	defaultSweepFrames = 64
	zoomLevels         = 16
	panDivisor         = 4
)

// ErrNoFrames is returned when --frames is not positive.
var ErrNoFrames = errors.New("sweep needs at least one frame")

// SweepCommand drives the window controller through a zoom and pan sequence
// and reports frame cost and cache behavior.
type SweepCommand struct {
	input       inputFlags
	frames      int
	format      string
	metricsAddr string
	linger      time.Duration
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand() *cobra.Command {
	sc := &SweepCommand{}

	cmd := &cobra.Command{
		Use:   "sweep [trace]",
		Short: "Replay a zoom and pan sequence and report per-frame cost",
		Long: `Zoom from the whole trace into a narrow window and pan across it, easing
the window with a simulated clock. Every frame is rendered through the state
cache so pans inside one quantization cell reuse aggregated geometry.

With --metrics-addr, /metrics, /healthz and /readyz are served while the
sweep runs.`,
		Args: cobra.MaximumNArgs(1),
		RunE: sc.run,
	}

	sc.input.register(cmd)

	cmd.Flags().IntVar(&sc.frames, "frames", defaultSweepFrames, "Number of frames to render")
	cmd.Flags().StringVar(&sc.format, "format", string(report.FormatTable), "Output format: table, json, yaml, html")
	cmd.Flags().StringVar(&sc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics and health checks at this address")
	cmd.Flags().DurationVar(&sc.linger, "linger", 0, "Keep the diagnostics server up this long after the sweep")

	return cmd
}

func (sc *SweepCommand) run(cmd *cobra.Command, args []string) (err error) {
	if sc.frames <= 0 {
		return ErrNoFrames
	}

	format, err := report.ParseFormat(sc.format)
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	s, err := openSession(ctx, &sc.input, args, observability.ModeSweep, sc.metricsAddr != "")
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, s.close())
	}()

	metrics, err := observability.NewRenderMetrics(s.providers.Meter)
	if err != nil {
		return fmt.Errorf("create render metrics: %w", err)
	}

	if sc.metricsAddr != "" {
		diag, diagErr := observability.NewDiagnosticsServer(sc.metricsAddr, s.providers.MetricsHandler, s.providers.Meter)
		if diagErr != nil {
			return diagErr
		}

		s.logger.InfoContext(ctx, "serving diagnostics", "addr", diag.Addr())

		defer func() {
			err = errors.Join(err, sc.lingerAndClose(ctx, diag))
		}()
	}

	p, win, err := s.newPipeline()
	if err != nil {
		return err
	}

	sweep := report.NewSweep(s.source)
	now := time.Now()
	step := s.cfg.Window.EaseDelay
	prev := p.Cache().Stats()

	for i := range sc.frames {
		sel := selectionAt(s.trace.Span, i, sc.frames)
		win.SetSelection(sel.Start, sel.End, now)

		now = now.Add(step)
		win.Tick(now)

		started := time.Now()

		frame, renderErr := p.Render(ctx, win)
		if renderErr != nil {
			return fmt.Errorf("render frame %d: %w", i, renderErr)
		}

		elapsed := time.Since(started)
		cur := p.Cache().Stats()

		sweep.Add(frame, elapsed)
		metrics.RecordFrame(ctx, frameStats(frame, elapsed, prev, cur))

		prev = cur
	}

	sweep.Finish(prev)

	return report.WriteSweep(cmd.OutOrStdout(), sweep, format)
}

func (sc *SweepCommand) lingerAndClose(ctx context.Context, diag *observability.DiagnosticsServer) error {
	if sc.linger > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(sc.linger):
		}
	}

	return diag.Close(context.Background())
}

// selectionAt returns the selection of frame i out of n over trace.
func selectionAt(trace timeline.Span, i, n int) timeline.Span {
	half := max(n/2, 1)
	full := max(trace.Duration(), 1)

	if i < half {
		level := i * zoomLevels / half
		dur := max(full>>level, 1)
		start := trace.Start + (full-dur)/2

		return timeline.Span{Start: start, End: start + dur}
	}

	dur := max(full>>zoomLevels, 1)
	step := max(dur/panDivisor, 1)
	start := trace.Start + (full-dur)/2 + int64(i-half)*step
	start = min(start, trace.End-dur)

	return timeline.Span{Start: start, End: start + dur}
}

// frameStats converts a frame into telemetry input with cache deltas.
func frameStats(f *pipeline.Frame, d time.Duration, prev, cur statecache.Stats) observability.FrameStats {
	return observability.FrameStats{
		Duration:      d,
		Primitives:    f.Primitives(),
		Batches:       len(f.Batches()),
		ModelDirty:    f.ModelDirty,
		WindowMoved:   f.WindowMoved,
		CacheHits:     cur.Hits - prev.Hits,
		CacheMisses:   cur.Misses - prev.Misses,
		Invalidations: cur.Invalidations - prev.Invalidations,
	}
}
