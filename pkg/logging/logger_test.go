package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveguide/pkg/config"
	"driveguide/pkg/model"
)

func TestInit(t *testing.T) {
	dir := t.TempDir()
	serverLog := filepath.Join(dir, "server.log")
	requestLog := filepath.Join(dir, "requests.log")
	narrationLog := filepath.Join(dir, "narration.log")

	require.NoError(t, os.WriteFile(serverLog, []byte("previous run\n"), 0o644))

	cfg := &config.LogConfig{
		Server:    config.LogSettings{Path: serverLog, Level: "TRACE"},
		Requests:  config.LogSettings{Path: requestLog, Level: "INFO"},
		Narration: config.LogSettings{Path: narrationLog},
	}

	prev := slog.Default()
	cleanup, err := Init(cfg)
	require.NoError(t, err)
	defer func() {
		cleanup()
		slog.SetDefault(prev)
	}()

	assert.FileExists(t, requestLog)
	old, err := os.ReadFile(serverLog + ".old")
	require.NoError(t, err)
	assert.Equal(t, "previous run\n", string(old))
	require.NotNil(t, RequestLogger)

	slog.Info("captured line", "cell", "xn76u")
	last, ok := Server.Last()
	require.True(t, ok)
	assert.Equal(t, "captured line", last.Msg)
	assert.Equal(t, "xn76u", last.Attrs["cell"])

	TraceDefault("per-sample detail")
	data, err := os.ReadFile(serverLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "level=TRACE")
	assert.Contains(t, string(data), "per-sample detail")

	// Trace stays out of the INFO+ capture.
	last, _ = Server.Last()
	assert.Equal(t, "captured line", last.Msg)
}

func TestLogNarration(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "narration.log")
	prev := slog.Default()
	cleanup, err := Init(&config.LogConfig{
		Server:    config.LogSettings{Path: filepath.Join(dir, "server.log")},
		Requests:  config.LogSettings{Path: filepath.Join(dir, "requests.log")},
		Narration: config.LogSettings{Path: path},
	})
	require.NoError(t, err)
	defer func() {
		cleanup()
		slog.SetDefault(prev)
	}()

	ev := &model.NarrationEvent{
		POIName:        "Tokyo Tower",
		Text:           "On your right,\nTokyo Tower.",
		Direction:      model.DirectionRight,
		DistanceMeters: 400,
		Timestamp:      time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	LogNarration(ev)
	ev.Manual = true
	LogNarration(ev)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[2026-03-01 10:00:00] [auto] Tokyo Tower (right, 400m) - On your right, Tokyo Tower.", lines[0])
	assert.Contains(t, lines[1], "[manual]")

	last, ok := Narrations.Last()
	require.True(t, ok)
	assert.Equal(t, lines[1], last.Msg)
}

func TestFanout(t *testing.T) {
	var debugBuf, warnBuf bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&debugBuf, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&warnBuf, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}
	assert.True(t, h.Enabled(context.Background(), slog.LevelDebug))
	assert.False(t, h.Enabled(context.Background(), LevelTrace))

	logger := slog.New(h).With("component", "test")
	logger.Debug("quiet")
	logger.Warn("loud")

	assert.Contains(t, debugBuf.String(), "quiet")
	assert.Contains(t, debugBuf.String(), "loud")
	assert.NotContains(t, warnBuf.String(), "quiet")
	assert.Contains(t, warnBuf.String(), "component=test")
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"trace", LevelTrace},
		{"DEBUG", slog.LevelDebug},
		{" info ", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestTrace_BelowDebug(t *testing.T) {
	var buf bytes.Buffer
	Trace(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})), "hidden")
	assert.Zero(t, buf.Len())

	Trace(slog.New(textHandler(&buf, LevelTrace)), "shown")
	assert.Contains(t, buf.String(), "level=TRACE")
	assert.Contains(t, buf.String(), "shown")
}
