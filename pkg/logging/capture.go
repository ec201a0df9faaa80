package logging

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// maxAttrLen drops attribute values too long for a one-line summary.
const maxAttrLen = 20

// Entry is one captured log record.
type Entry struct {
	Time  time.Time
	Level slog.Level
	Msg   string
	Attrs map[string]string
}

// Summary renders the entry as "15:04:05 msg (k=v, ...)" with attributes
// sorted by key and long values left out.
func (e Entry) Summary() string {
	out := e.Msg
	if !e.Time.IsZero() {
		out = e.Time.Format("15:04:05") + " " + out
	}
	var params []string
	for k, v := range e.Attrs {
		if len(v) > maxAttrLen {
			continue
		}
		params = append(params, k+"="+v)
	}
	if len(params) == 0 {
		return out
	}
	sort.Strings(params)
	return fmt.Sprintf("%s (%s)", out, strings.Join(params, ", "))
}

// Capture keeps the most recent records in memory for the status endpoints.
type Capture struct {
	mu      sync.RWMutex
	entries []Entry // ring buffer
	next    int
	full    bool
}

// Server holds recent INFO+ server log records; Narrations holds recent
// narration log lines.
var (
	Server     = NewCapture(50)
	Narrations = NewCapture(20)
)

// NewCapture creates a capture holding up to size entries.
func NewCapture(size int) *Capture {
	if size < 1 {
		size = 1
	}
	return &Capture{entries: make([]Entry, size)}
}

// Add stores an entry, overwriting the oldest when full.
func (c *Capture) Add(e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[c.next] = e
	c.next = (c.next + 1) % len(c.entries)
	if c.next == 0 {
		c.full = true
	}
}

// Last returns the newest entry.
func (c *Capture) Last() (Entry, bool) {
	recent := c.Recent(1)
	if len(recent) == 0 {
		return Entry{}, false
	}
	return recent[0], true
}

// Recent returns up to n entries, newest first.
func (c *Capture) Recent(n int) []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	count := c.next
	if c.full {
		count = len(c.entries)
	}
	if n > count {
		n = count
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (c.next - i + len(c.entries)) % len(c.entries)
		out = append(out, c.entries[idx])
	}
	return out
}

// Handler returns a slog.Handler that records into c.
func (c *Capture) Handler(level slog.Leveler) slog.Handler {
	return &captureHandler{store: c, level: level}
}

type captureHandler struct {
	store  *Capture
	level  slog.Leveler
	attrs  []slog.Attr
	prefix string
}

func (h *captureHandler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level.Level()
}

//nolint:gocritic // slog.Handler takes the record by value
func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	e := Entry{Time: r.Time, Level: r.Level, Msg: r.Message, Attrs: make(map[string]string, len(h.attrs)+r.NumAttrs())}
	for _, a := range h.attrs {
		addAttr(e.Attrs, "", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addAttr(e.Attrs, h.prefix, a)
		return true
	})
	h.store.Add(e)
	return nil
}

func (h *captureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		if h.prefix != "" {
			a.Key = h.prefix + a.Key
		}
		next.attrs = append(next.attrs, a)
	}
	return &next
}

func (h *captureHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func addAttr(dst map[string]string, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			addAttr(dst, prefix+a.Key+".", ga)
		}
		return
	}
	if a.Key == "" {
		return
	}
	dst[prefix+a.Key] = strings.TrimSpace(a.Value.String())
}
