package observability_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/timelod/internal/observability"
)

func newJSONLogger(buf *bytes.Buffer, cfg observability.Config) *slog.Logger {
	inner := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})

	return slog.New(observability.NewTracingHandler(inner, cfg))
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var record map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	return record
}

// TestTracingHandler_InjectsTraceContext verifies trace and span ids.
func TestTracingHandler_InjectsTraceContext(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	cfg := observability.DefaultConfig()
	cfg.Environment = "test"
	cfg.ServiceVersion = "0.1.0"
	logger := newJSONLogger(&buf, cfg)

	traceID, err := trace.TraceIDFromHex("0102030405060708090a0b0c0d0e0f10")
	require.NoError(t, err)

	spanID, err := trace.SpanIDFromHex("0102030405060708")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	logger.InfoContext(trace.ContextWithSpanContext(context.Background(), sc), "frame rendered")

	record := decodeRecord(t, &buf)
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f10", record["trace_id"])
	assert.Equal(t, "0102030405060708", record["span_id"])
	assert.Equal(t, "timelod", record["service"])
	assert.Equal(t, "0.1.0", record["version"])
	assert.Equal(t, "test", record["env"])
	assert.Equal(t, "cli", record["mode"])
}

// TestTracingHandler_NoSpan verifies that records without a span carry no ids
// and empty service fields are omitted.
func TestTracingHandler_NoSpan(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, observability.DefaultConfig())
	logger.Info("no span")

	record := decodeRecord(t, &buf)
	assert.NotContains(t, record, "trace_id")
	assert.NotContains(t, record, "env")
	assert.NotContains(t, record, "version")
}

// TestTracingHandler_GroupKeepsServiceTopLevel verifies WithGroup behavior.
func TestTracingHandler_GroupKeepsServiceTopLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := newJSONLogger(&buf, observability.DefaultConfig()).WithGroup("lod").With("rows", 3)
	logger.Debug("rebuild", "from", 0)

	record := decodeRecord(t, &buf)
	assert.Equal(t, "timelod", record["service"])

	group, ok := record["lod"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 3, group["rows"], 0)
	assert.InDelta(t, 0, group["from"], 0)
}

// TestTracingHandler_Enabled verifies level delegation.
func TestTracingHandler_Enabled(t *testing.T) {
	t.Parallel()

	inner := slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn})
	handler := observability.NewTracingHandler(inner, observability.DefaultConfig())

	assert.False(t, handler.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, handler.Enabled(context.Background(), slog.LevelError))
}
