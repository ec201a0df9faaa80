package logging

import (
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_Ring(t *testing.T) {
	c := NewCapture(3)
	_, ok := c.Last()
	assert.False(t, ok)

	for i := 1; i <= 5; i++ {
		c.Add(Entry{Msg: strconv.Itoa(i)})
	}

	var got []string
	for _, e := range c.Recent(10) {
		got = append(got, e.Msg)
	}
	assert.Equal(t, []string{"5", "4", "3"}, got)

	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, "5", last.Msg)
	assert.Len(t, c.Recent(2), 2)
}

func TestCapture_Handler(t *testing.T) {
	c := NewCapture(5)
	logger := slog.New(c.Handler(slog.LevelInfo)).With("component", "poi")

	logger.Debug("dropped")
	logger.WithGroup("query").Info("Fetched POIs", "count", 12, slog.Group("center", "cell", "xn76u"))

	require.Len(t, c.Recent(5), 1)
	e, _ := c.Last()
	assert.Equal(t, "Fetched POIs", e.Msg)
	assert.Equal(t, map[string]string{
		"component":         "poi",
		"query.count":       "12",
		"query.center.cell": "xn76u",
	}, e.Attrs)
}

func TestEntry_Summary(t *testing.T) {
	ts := time.Date(2026, 3, 1, 10, 15, 46, 0, time.UTC)
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			name: "attributes sorted and long values dropped",
			entry: Entry{Time: ts, Msg: "Fetched POIs", Attrs: map[string]string{
				"radius":   "2000",
				"cell":     "xn76u",
				"count":    "12",
				"endpoint": "https://overpass-api.de/api/interpreter",
			}},
			want: "10:15:46 Fetched POIs (cell=xn76u, count=12, radius=2000)",
		},
		{
			name:  "message only",
			entry: Entry{Time: ts, Msg: "Pipeline stopped"},
			want:  "10:15:46 Pipeline stopped",
		},
		{
			name:  "no time",
			entry: Entry{Msg: "plain"},
			want:  "plain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.entry.Summary())
		})
	}
}
