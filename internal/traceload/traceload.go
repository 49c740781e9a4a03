// Package traceload builds timeline indexes from Chrome trace-event JSON
// files, optionally LZ4 compressed, and from synthetic workloads.
//
// Complete events (ph "X") are inserted whole. Begin/end pairs (ph "B"/"E")
// are matched per thread through the streaming InsertStart/InsertEnd API.
// Every thread becomes one group. Timestamps are microseconds and are
// converted to integer nanoseconds.
package traceload

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/timelod/pkg/safeconv"
	"github.com/Sumatoshi-tech/timelod/pkg/timeline"
)

const tracerName = "timelod.traceload"

// nsPerMicrosecond converts trace-event timestamps.
const nsPerMicrosecond = 1_000

// Event phases.
const (
	PhaseComplete = "X"
	PhaseBegin    = "B"
	PhaseEnd      = "E"
	PhaseMetadata = "M"
)

// metaThreadName is the metadata event carrying a thread's display name.
const metaThreadName = "thread_name"

// Sentinel errors.
var (
	ErrInvalidJSON = errors.New("traceload: invalid trace JSON")
	ErrNoEvents    = errors.New("traceload: no interval events")
)

// ThreadID is a pid or tid. Trace writers emit both numbers and strings.
type ThreadID string

// UnmarshalJSON accepts a JSON number or string.
func (id *ThreadID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("thread id: %w", err)
		}

		*id = ThreadID(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("thread id: %w", err)
	}

	*id = ThreadID(n.String())

	return nil
}

// Event is one trace event. Ts and Dur are microseconds.
type Event struct {
	Name string         `json:"name"`
	Cat  string         `json:"cat,omitempty"`
	Ph   string         `json:"ph"`
	Ts   float64        `json:"ts"`
	Dur  float64        `json:"dur,omitempty"`
	Pid  ThreadID       `json:"pid"`
	Tid  ThreadID       `json:"tid"`
	Args map[string]any `json:"args,omitempty"`
}

// document is the object form of a trace file.
type document struct {
	TraceEvents []Event `json:"traceEvents"`
}

// Thread is one group of the loaded index.
type Thread struct {
	Pid  ThreadID
	Tid  ThreadID
	Name string
}

// Trace is a loaded, nested and row-assigned index.
type Trace struct {
	Index   *timeline.Index
	Threads []Thread
	Span    timeline.Span

	// Events counts interval events inserted; Skipped counts events that
	// were ignored; Unclosed counts begin events closed at the trace end.
	Events   int
	Skipped  int
	Unclosed int
}

// Option configures loading.
type Option func(*loader)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *loader) {
		l.logger = logger
	}
}

// WithTracer sets the tracer. Defaults to the global provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(l *loader) {
		l.tracer = tracer
	}
}

type threadKey struct {
	pid, tid ThreadID
}

type loader struct {
	logger *slog.Logger
	tracer trace.Tracer

	out     *Trace
	groups  map[threadKey]int32
	pending map[int32][]pendingBegin
	spanSet bool
}

// pendingBegin is an open B event; pos tracks its shifting index position.
type pendingBegin struct {
	pos   int
	start int64
}

func newLoader(opts []Option) *loader {
	l := &loader{
		logger:  slog.Default(),
		groups:  make(map[threadKey]int32),
		pending: make(map[int32][]pendingBegin),
		out:     &Trace{Index: timeline.New()},
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.tracer == nil {
		l.tracer = otel.Tracer(tracerName)
	}

	return l
}

// Load decodes a trace from r. Both the bare array form and the
// {"traceEvents": [...]} object form are accepted.
func Load(ctx context.Context, r io.Reader, opts ...Option) (*Trace, error) {
	l := newLoader(opts)

	ctx, span := l.tracer.Start(ctx, "timelod.traceload.load")
	defer span.End()

	events, err := decodeEvents(r)
	if err != nil {
		return nil, err
	}

	if err = l.build(events); err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("trace.events", l.out.Events),
		attribute.Int("trace.threads", len(l.out.Threads)),
	)

	l.logger.DebugContext(ctx, "traceload: trace loaded",
		"events", l.out.Events, "threads", len(l.out.Threads),
		"skipped", l.out.Skipped, "unclosed", l.out.Unclosed)

	return l.out, nil
}

func decodeEvents(r io.Reader) ([]Event, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidJSON)
	}

	if data[0] == '[' {
		var events []Event
		if err = json.Unmarshal(data, &events); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}

		return events, nil
	}

	var doc document
	if err = json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}

	return doc.TraceEvents, nil
}

func (l *loader) build(events []Event) error {
	slices.SortStableFunc(events, func(a, b Event) int {
		return cmp.Compare(a.Ts, b.Ts)
	})

	for lo := 0; lo < len(events); {
		hi := lo + 1
		for hi < len(events) && events[hi].Ts == events[lo].Ts {
			hi++
		}

		l.applyAt(events[lo:hi])
		lo = hi
	}

	l.closePending()

	for i := range events {
		if events[i].Ph == PhaseMetadata {
			l.applyMetadata(&events[i])
		}
	}

	if l.out.Events == 0 {
		return ErrNoEvents
	}

	l.out.Index.ComputeNesting()
	l.out.Index.AssignRows()

	return nil
}

// applyAt applies events sharing one timestamp. Ends that close an interval
// opened at an earlier timestamp on their thread go first, so back-to-back
// B/E pairs stay siblings; everything else keeps file order, so a
// zero-length pair still matches.
func (l *loader) applyAt(events []Event) {
	var (
		early []bool
		open  map[int32]int
	)

	for i := range events {
		ev := &events[i]
		if ev.Ph != PhaseEnd {
			continue
		}

		g, ok := l.groups[threadKey{pid: ev.Pid, tid: ev.Tid}]
		if !ok {
			continue
		}

		if open == nil {
			open = make(map[int32]int)
			early = make([]bool, len(events))
		}

		n, seen := open[g]
		if !seen {
			n = len(l.pending[g])
		}

		if n > 0 {
			early[i] = true
			n--
		}

		open[g] = n
	}

	for i := range early {
		if early[i] {
			l.apply(&events[i])
		}
	}

	for i := range events {
		if (early == nil || !early[i]) && events[i].Ph != PhaseMetadata {
			l.apply(&events[i])
		}
	}
}

func (l *loader) apply(ev *Event) {
	start, ok := safeconv.Float64ToInt64(ev.Ts * nsPerMicrosecond)
	if !ok {
		l.out.Skipped++

		return
	}

	switch ev.Ph {
	case PhaseComplete:
		dur, durOK := safeconv.Float64ToInt64(ev.Dur * nsPerMicrosecond)
		if !durOK || dur < 0 {
			l.out.Skipped++

			return
		}

		l.inserted(l.out.Index.Insert(start, dur, l.group(ev)))
		l.extend(start, start+dur)
		l.out.Events++
	case PhaseBegin:
		group := l.group(ev)
		pos := l.out.Index.InsertStart(start, group)
		l.inserted(pos)
		l.pending[group] = append(l.pending[group], pendingBegin{pos: pos, start: start})
		l.extend(start, start)
	case PhaseEnd:
		l.end(l.group(ev), start)
	default:
		l.out.Skipped++
	}
}

func (l *loader) end(group int32, at int64) {
	stack := l.pending[group]
	if len(stack) == 0 {
		l.out.Skipped++

		return
	}

	top := stack[len(stack)-1]
	l.pending[group] = stack[:len(stack)-1]

	l.out.Index.InsertEnd(top.pos, at-top.start)
	l.extend(top.start, at)
	l.out.Events++
}

// inserted shifts the recorded positions of open intervals at or after pos.
func (l *loader) inserted(pos int) {
	for _, stack := range l.pending {
		for i := range stack {
			if stack[i].pos >= pos {
				stack[i].pos++
			}
		}
	}
}

// closePending ends every still-open interval at the trace end, innermost
// first.
func (l *loader) closePending() {
	groups := make([]int32, 0, len(l.pending))
	for g := range l.pending {
		groups = append(groups, g)
	}

	slices.Sort(groups)

	for _, g := range groups {
		for len(l.pending[g]) > 0 {
			l.end(g, l.out.Span.End)
			l.out.Unclosed++
		}
	}
}

// applyMetadata names threads that own at least one interval.
func (l *loader) applyMetadata(ev *Event) {
	if ev.Name != metaThreadName {
		return
	}

	g, ok := l.groups[threadKey{pid: ev.Pid, tid: ev.Tid}]
	if !ok {
		return
	}

	name, _ := ev.Args["name"].(string)
	l.out.Threads[g].Name = name
}

// group returns the dense group id of the event's thread.
func (l *loader) group(ev *Event) int32 {
	key := threadKey{pid: ev.Pid, tid: ev.Tid}
	if g, ok := l.groups[key]; ok {
		return g
	}

	g := safeconv.MustIntToInt32(len(l.out.Threads))
	l.groups[key] = g
	l.out.Threads = append(l.out.Threads, Thread{Pid: ev.Pid, Tid: ev.Tid})

	return g
}

func (l *loader) extend(start, end int64) {
	if !l.spanSet {
		l.out.Span = timeline.Span{Start: start, End: end}
		l.spanSet = true

		return
	}

	l.out.Span.Start = min(l.out.Span.Start, start)
	l.out.Span.End = max(l.out.Span.End, end)
}
