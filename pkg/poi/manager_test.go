package poi

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveguide/pkg/cache"
	"driveguide/pkg/clock"
	"driveguide/pkg/geo"
	"driveguide/pkg/model"
	"driveguide/pkg/tracker"
)

var (
	t0     = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	origin = geo.Point{Lat: 35.6586, Lon: 139.7454}
)

type mockFetcher struct {
	calls   atomic.Int32
	radius  float64
	err     error
	pois    []model.POI
	onFetch func()
}

func (f *mockFetcher) Fetch(ctx context.Context, lat, lon, radius float64) ([]model.POI, error) {
	f.calls.Add(1)
	f.radius = radius
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.pois, nil
}

func newTestManager(f Fetcher) (*Manager, *clock.Fake, *tracker.Tracker) {
	clk := clock.NewFake(t0)
	tr := tracker.New()
	m := NewManager(DefaultConfig(), f, cache.New(cache.DefaultTTL, cache.DefaultMaxEntries, clk), clk, tr)
	return m, clk, tr
}

func TestQueryRadius(t *testing.T) {
	tests := []struct {
		search float64
		want   float64
	}{
		{500, 2000},
		{1000, 2000},
		{2000, 4000},
		{3000, 6000},
	}
	for _, tt := range tests {
		if got := QueryRadius(tt.search, DefaultRadiusFloor); got != tt.want {
			t.Errorf("QueryRadius(%v) = %v, want %v", tt.search, got, tt.want)
		}
	}
}

func TestFirstRefreshFetches(t *testing.T) {
	f := &mockFetcher{pois: []model.POI{{ID: "node-1", Name: "Tokyo Tower"}}}
	m, _, _ := newTestManager(f)

	assert.True(t, m.ShouldRefresh(origin))
	res, ran := m.Refresh(context.Background(), origin, 1000)
	require.True(t, ran)
	assert.Equal(t, SourceRemote, res.Source)
	assert.Equal(t, 2000.0, f.radius)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, 1, m.ActiveCount())

	p, err := m.Get("node-1")
	require.NoError(t, err)
	assert.Equal(t, "Tokyo Tower", p.Name)
	_, err = m.Get("missing")
	assert.ErrorIs(t, err, ErrPOINotFound)
}

func TestTriggerPolicy(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		moved   float64
		want    bool
	}{
		{"TooSoonFarAway", 5 * time.Second, 1000, false},
		{"JustBeforeRateLimit", 9 * time.Second, 1000, false},
		{"RateLimitElapsedNotMoved", 11 * time.Second, 100, false},
		{"RateLimitElapsedMoved", 10 * time.Second, 300.5, true},
		{"LongAfterMovedFar", time.Hour, 5000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, clk, _ := newTestManager(&mockFetcher{})
			_, ran := m.Refresh(context.Background(), origin, 1000)
			require.True(t, ran)

			clk.Advance(tt.elapsed)
			next := geo.DestinationPoint(origin, tt.moved, 90)
			assert.Equal(t, tt.want, m.ShouldRefresh(next))
			_, ran = m.Refresh(context.Background(), next, 1000)
			assert.Equal(t, tt.want, ran)
		})
	}
}

func TestCacheHitSkipsFetch(t *testing.T) {
	f := &mockFetcher{pois: []model.POI{{ID: "node-1"}}}
	m, clk, tr := newTestManager(f)

	_, ran := m.Refresh(context.Background(), origin, 1000)
	require.True(t, ran)

	// 400 m west stays in the same precision-5 cell.
	next := geo.DestinationPoint(origin, 400, 270)
	require.Equal(t, geo.Cell(origin.Lat, origin.Lon, 5), geo.Cell(next.Lat, next.Lon, 5))

	clk.Advance(15 * time.Second)
	res, ran := m.Refresh(context.Background(), next, 1000)
	require.True(t, ran)
	assert.Equal(t, SourceCache, res.Source)
	assert.Equal(t, int32(1), f.calls.Load())
	assert.Equal(t, int64(1), tr.Snapshot()["poi-cache"].CacheHits)

	center, ok := m.LastCenter()
	require.True(t, ok)
	assert.Equal(t, next, center, "cache hit still moves the query center")

	clk.Advance(5 * time.Second)
	assert.False(t, m.ShouldRefresh(geo.DestinationPoint(next, 1000, 270)), "cache hit restarts the rate limit")
}

func TestRemoteRateLimitCountsFromCompletion(t *testing.T) {
	f := &mockFetcher{}
	m, clk, _ := newTestManager(f)
	f.onFetch = func() { clk.Advance(6 * time.Second) }

	_, ran := m.Refresh(context.Background(), origin, 1000)
	require.True(t, ran)

	far := geo.DestinationPoint(origin, 10000, 0)
	clk.Advance(8 * time.Second) // 14 s after start, 8 s after completion
	assert.False(t, m.ShouldRefresh(far))

	clk.Advance(2 * time.Second)
	assert.True(t, m.ShouldRefresh(far))
}

func TestFallbackOnFailure(t *testing.T) {
	f := &mockFetcher{err: errors.New("overpass: all endpoints failed")}
	m, clk, tr := newTestManager(f)

	res, ran := m.Refresh(context.Background(), origin, 1000)
	require.True(t, ran)
	assert.Equal(t, SourceFallback, res.Source)
	assert.NotEmpty(t, res.POIs, "demo data covers Tokyo Tower")
	for _, p := range res.POIs {
		assert.LessOrEqual(t, geo.Distance(origin, geo.POIPoint(&p)), res.Radius)
	}
	assert.Equal(t, int64(1), tr.Snapshot()["overpass"].Fallbacks)

	// Fallback data is not cached: the next eligible refresh hits the network again.
	clk.Advance(11 * time.Second)
	_, ran = m.Refresh(context.Background(), geo.DestinationPoint(origin, 400, 0), 1000)
	require.True(t, ran)
	assert.Equal(t, int32(2), f.calls.Load())
}

func TestSingleFlight(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	f := &mockFetcher{onFetch: func() {
		close(entered)
		<-release
	}}
	m, _, _ := newTestManager(f)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		m.Refresh(context.Background(), origin, 1000)
	}()
	<-entered

	assert.True(t, m.InFlight())
	assert.False(t, m.ShouldRefresh(origin))
	_, ran := m.Refresh(context.Background(), origin, 1000)
	assert.False(t, ran)

	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), f.calls.Load())
	assert.False(t, m.InFlight())
}
