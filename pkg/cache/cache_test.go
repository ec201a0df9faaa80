package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"driveguide/pkg/clock"
	"driveguide/pkg/model"
)

var start = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

func pois(names ...string) []model.POI {
	out := make([]model.POI, 0, len(names))
	for _, n := range names {
		out = append(out, model.POI{ID: "node-" + n, Name: n})
	}
	return out
}

func TestGetPut(t *testing.T) {
	clk := clock.NewFake(start)
	c := New(DefaultTTL, DefaultMaxEntries, clk)

	_, ok := c.Get("xn76u")
	assert.False(t, ok)

	c.Put("xn76u", pois("Tokyo Tower"))
	got, ok := c.Get("xn76u")
	assert.True(t, ok)
	assert.Equal(t, "Tokyo Tower", got[0].Name)
}

func TestTTLExpiry(t *testing.T) {
	tests := []struct {
		name    string
		age     time.Duration
		present bool
	}{
		{"Fresh", 0, true},
		{"JustBeforeTTL", DefaultTTL - time.Millisecond, true},
		{"AtTTL", DefaultTTL, false},
		{"Stale", DefaultTTL + time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clk := clock.NewFake(start)
			c := New(DefaultTTL, DefaultMaxEntries, clk)
			c.Put("k", pois("a"))

			clk.Advance(tt.age)
			_, ok := c.Get("k")
			assert.Equal(t, tt.present, ok)
			if !tt.present {
				assert.Equal(t, 0, c.Len(), "stale entry removed on read")
			}
		})
	}
}

func TestEvictsOldestAtCapacity(t *testing.T) {
	clk := clock.NewFake(start)
	c := New(DefaultTTL, DefaultMaxEntries, clk)

	for i := 0; i < DefaultMaxEntries; i++ {
		c.Put(fmt.Sprintf("k%02d", i), pois("x"))
		clk.Advance(time.Second)
	}
	assert.Equal(t, DefaultMaxEntries, c.Len())

	c.Put("k50", pois("y"))
	assert.Equal(t, DefaultMaxEntries, c.Len())

	_, ok := c.Get("k00")
	assert.False(t, ok, "earliest entry evicted")
	_, ok = c.Get("k01")
	assert.True(t, ok)
	_, ok = c.Get("k50")
	assert.True(t, ok)
}

func TestOverwriteDoesNotEvict(t *testing.T) {
	clk := clock.NewFake(start)
	c := New(DefaultTTL, 2, clk)

	c.Put("a", pois("1"))
	clk.Advance(time.Second)
	c.Put("b", pois("2"))
	clk.Advance(time.Second)
	c.Put("b", pois("3"))

	assert.Equal(t, 2, c.Len())
	_, ok := c.Get("a")
	assert.True(t, ok)
	got, _ := c.Get("b")
	assert.Equal(t, "3", got[0].Name)
}

func TestClear(t *testing.T) {
	c := New(0, 0, nil)
	c.Put("a", pois("1"))
	c.Clear()
	assert.Equal(t, 0, c.Len())
}
