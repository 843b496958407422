package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name string
		want slog.Level
	}{
		{name: "debug", want: slog.LevelDebug},
		{name: "info", want: slog.LevelInfo},
		{name: "warn", want: slog.LevelWarn},
		{name: "error", want: slog.LevelError},
		{name: "verbose", want: slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.name))
		})
	}
}

func TestNewLogger_JSONWithRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "info", Format: "json", Output: &buf})

	logger.WithRunID("run-1").Info("generated", slog.Int("tables", 3))
	logger.Debug("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "generated", entry["msg"])
	assert.Equal(t, "run-1", entry["run_id"])
	assert.Equal(t, float64(3), entry["tables"])
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Output: &buf})

	logger.Info("hidden")
	logger.WithFields("table", "users").Warn("fallback")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "msg=fallback")
	assert.Contains(t, out, "table=users")
}

func TestMultiHandler(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	h := newMultiHandler(
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("run_id", "abc")

	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	logger.Info("info line")
	logger.Error("error line")

	assert.Contains(t, debugBuf.String(), "info line")
	assert.Contains(t, debugBuf.String(), "error line")
	assert.NotContains(t, errorBuf.String(), "info line")
	assert.Contains(t, errorBuf.String(), "error line")
	assert.Contains(t, errorBuf.String(), "run_id=abc")
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetRunID(ctx))
	assert.NotNil(t, FromContext(ctx).Logger)

	var buf bytes.Buffer
	logger := NewLogger(Config{Output: &buf})
	ctx = WithLogger(WithRunIDContext(ctx, "run-2"), logger)

	assert.Equal(t, "run-2", GetRunID(ctx))
	assert.Same(t, logger, FromContext(ctx))
}
