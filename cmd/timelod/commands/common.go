// Package commands implements CLI command handlers for timelod.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/timelod/internal/config"
	"github.com/Sumatoshi-tech/timelod/internal/observability"
	"github.com/Sumatoshi-tech/timelod/internal/traceload"
	"github.com/Sumatoshi-tech/timelod/pkg/pipeline"
	"github.com/Sumatoshi-tech/timelod/pkg/statecache"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
	"github.com/Sumatoshi-tech/timelod/pkg/version"
	"github.com/Sumatoshi-tech/timelod/pkg/window"
)

// syntheticSource labels reports of generated workloads.
const syntheticSource = "synthetic"

var (
	// ErrNoInput is returned when neither a trace path nor --synthetic is given.
	ErrNoInput = errors.New("no input: pass a trace file or --synthetic N")
	// ErrInvalidWindow is returned for a malformed --window value.
	ErrInvalidWindow = errors.New("invalid window, want start:end")
)

// inputFlags selects the trace to render.
type inputFlags struct {
	configPath string
	verbose    bool
	synthetic  int
	pattern    string
	seed       uint64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.configPath, "config", "", "Config file path (default: .timelod.yaml in CWD or $HOME)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().IntVar(&f.synthetic, "synthetic", 0, "Generate N synthetic intervals instead of reading a trace")
	cmd.Flags().StringVar(&f.pattern, "pattern", string(traceload.PatternNested), "Synthetic pattern: nested, uniform")
	cmd.Flags().Uint64Var(&f.seed, "seed", 1, "Synthetic workload seed")
}

// session is the per-command runtime: config, telemetry and the loaded trace.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	logger    *slog.Logger
	trace     *traceload.Trace
	source    string
}

// openSession loads config, starts telemetry and loads the input trace.
// The caller must call close.
func openSession(
	ctx context.Context, flags *inputFlags, args []string, mode observability.AppMode, prometheus bool,
) (*session, error) {
	cfg, err := config.LoadConfig(flags.configPath)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.ObservabilityConfig(version.Version, mode)
	obsCfg.Prometheus = prometheus

	if flags.verbose {
		obsCfg.Log.Level = slog.LevelDebug
	}

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	s := &session{cfg: cfg, providers: providers, logger: providers.Logger}

	s.trace, s.source, err = loadInput(ctx, flags, args, s.logger)
	if err != nil {
		return nil, errors.Join(err, s.close())
	}

	return s, nil
}

func loadInput(
	ctx context.Context, flags *inputFlags, args []string, logger *slog.Logger,
) (*traceload.Trace, string, error) {
	if flags.synthetic > 0 {
		tr, err := traceload.Synthetic(traceload.Pattern(flags.pattern), flags.synthetic, flags.seed)
		if err != nil {
			return nil, "", err
		}

		return tr, fmt.Sprintf("%s/%s", syntheticSource, flags.pattern), nil
	}

	if len(args) == 0 {
		return nil, "", ErrNoInput
	}

	tr, err := traceload.LoadFile(ctx, args[0], traceload.WithLogger(logger))
	if err != nil {
		return nil, "", err
	}

	return tr, args[0], nil
}

func (s *session) close() error {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("observability shutdown: %w", err)
	}

	return nil
}

// newPipeline builds the render pipeline and window controller for the
// session's trace.
func (s *session) newPipeline() (*pipeline.Pipeline, *window.Controller, error) {
	cache := statecache.New(
		statecache.WithCapacity(s.cfg.Cache.Capacity),
		statecache.WithLogger(s.logger),
	)

	p, err := pipeline.New(
		timeline.NewModel(s.trace.Index),
		pipeline.WithLODOptions(s.cfg.LODOptions(s.logger)),
		pipeline.WithCache(cache),
		pipeline.WithLogger(s.logger),
		pipeline.WithTracer(s.providers.Tracer),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create pipeline: %w", err)
	}

	win := window.New(s.cfg.WindowOptions()...)
	win.SetTrace(s.trace.Span.Start, s.trace.Span.End)

	return p, win, nil
}

// parseWindow parses "start:end". Each bound is integer nanoseconds or a Go
// duration such as 1.5ms.
func parseWindow(raw string) (timeline.Span, error) {
	lo, hi, ok := strings.Cut(raw, ":")
	if !ok {
		return timeline.Span{}, fmt.Errorf("%w: %q", ErrInvalidWindow, raw)
	}

	start, err := parseTime(lo)
	if err != nil {
		return timeline.Span{}, fmt.Errorf("%w: %w", ErrInvalidWindow, err)
	}

	end, err := parseTime(hi)
	if err != nil {
		return timeline.Span{}, fmt.Errorf("%w: %w", ErrInvalidWindow, err)
	}

	if end < start {
		return timeline.Span{}, fmt.Errorf("%w: end %d before start %d", ErrInvalidWindow, end, start)
	}

	return timeline.Span{Start: start, End: end}, nil
}

func parseTime(s string) (int64, error) {
	s = strings.TrimSpace(s)

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse time %q: %w", s, err)
	}

	return int64(d), nil
}
