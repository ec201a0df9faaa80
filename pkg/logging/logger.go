// Package logging sets up the server, request and narration logs.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"driveguide/pkg/config"
	"driveguide/pkg/model"
)

// RequestLogger writes the HTTP access log. It is nil until Init runs.
var RequestLogger *slog.Logger

var narrationLog struct {
	mu   sync.Mutex
	file *os.File
}

// Init rotates the previous run's logs to .old, installs the default logger
// and opens the request and narration logs. The returned cleanup closes all
// files.
func Init(cfg *config.LogConfig) (func(), error) {
	rotate(cfg.Server.Path, cfg.Requests.Path, cfg.Narration.Path, cfg.Gemini.Path)

	var files []io.Closer
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	serverFile, err := openLog(cfg.Server.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open server log: %w", err)
	}
	files = append(files, serverFile)

	level := ParseLevel(cfg.Server.Level)
	slog.SetDefault(slog.New(fanout{
		textHandler(serverFile, level),
		textHandler(os.Stdout, max(level, slog.LevelInfo)),
		Server.Handler(slog.LevelInfo),
	}))

	requestFile, err := openLog(cfg.Requests.Path)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("failed to open requests log: %w", err)
	}
	files = append(files, requestFile)
	RequestLogger = slog.New(textHandler(requestFile, ParseLevel(cfg.Requests.Level)))

	if cfg.Narration.Path != "" {
		f, err := openLog(cfg.Narration.Path)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("failed to open narration log: %w", err)
		}
		setNarrationFile(f)
	}

	return func() {
		setNarrationFile(nil)
		closeAll()
	}, nil
}

func openLog(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
}

func textHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		AddSource:   level <= slog.LevelDebug,
		ReplaceAttr: levelName,
	})
}

// rotate renames existing log files to <path>.old, replacing older copies.
func rotate(paths ...string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = os.Remove(p + ".old")
		_ = os.Rename(p, p+".old")
	}
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

//nolint:gocritic // slog.Handler takes the record by value
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}

func setNarrationFile(f *os.File) {
	narrationLog.mu.Lock()
	defer narrationLog.mu.Unlock()
	if narrationLog.file != nil {
		narrationLog.file.Close()
	}
	narrationLog.file = f
}

// LogNarration records a delivered narration in the narration capture and,
// when configured, the narration log file.
func LogNarration(ev *model.NarrationEvent) {
	line := FormatNarration(ev)
	Narrations.Add(Entry{Time: ev.Timestamp, Level: slog.LevelInfo, Msg: line})

	narrationLog.mu.Lock()
	defer narrationLog.mu.Unlock()
	if narrationLog.file == nil {
		return
	}
	if _, err := narrationLog.file.WriteString(line + "\n"); err != nil {
		slog.Error("Narration log write failed", "error", err)
	}
}

// FormatNarration renders one narration log line:
// [2006-01-02 15:04:05] [auto] Name (right, 400m) - Text
func FormatNarration(ev *model.NarrationEvent) string {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	mode := "auto"
	if ev.Manual {
		mode = "manual"
	}
	line := fmt.Sprintf("[%s] [%s] %s (%s, %dm)", ts.Format("2006-01-02 15:04:05"), mode, ev.POIName, ev.Direction, ev.DistanceMeters)
	if text := strings.TrimSpace(ev.Text); text != "" {
		line += " - " + strings.ReplaceAll(text, "\n", " ")
	}
	return line
}
