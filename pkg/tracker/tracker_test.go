package tracker

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	tr := New()
	provider := "overpass-api.de"
	assert.Empty(t, tr.Snapshot())

	tr.TrackCacheHit(provider)
	tr.TrackCacheMiss(provider)
	tr.TrackAPISuccess(provider)
	tr.TrackAPIFailure(provider)
	tr.TrackAPIZero(provider)
	tr.TrackFallback(provider)
	tr.Inc(provider, numOutcomes) // ignored

	got, ok := tr.Snapshot()[provider]
	require.True(t, ok)
	assert.Equal(t, ProviderStats{
		CacheHits: 1, CacheMisses: 1, APISuccess: 1, APIFailures: 1, APIZeroResult: 1, Fallbacks: 1,
	}, got)
}

func TestHitRate(t *testing.T) {
	tests := []struct {
		name  string
		stats ProviderStats
		want  int64
	}{
		{"no lookups", ProviderStats{}, 0},
		{"all hits", ProviderStats{CacheHits: 4}, 100},
		{"one in three", ProviderStats{CacheHits: 1, CacheMisses: 2}, 33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.stats.HitRate())
		})
	}
}

func TestReset(t *testing.T) {
	tr := New()
	tr.TrackAPISuccess("gemini")
	tr.Reset()
	assert.Empty(t, tr.Snapshot())
}

func TestCollector(t *testing.T) {
	tr := New()
	tr.TrackAPISuccess("gemini")
	tr.TrackAPISuccess("gemini")
	tr.TrackFallback("narration")

	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(tr))

	expected := `
# HELP driveguide_fallbacks_total Results served from fallback data per provider.
# TYPE driveguide_fallbacks_total counter
driveguide_fallbacks_total{provider="gemini"} 0
driveguide_fallbacks_total{provider="narration"} 1
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "driveguide_fallbacks_total")
	assert.NoError(t, err)

	count, err := testutil.GatherAndCount(reg, "driveguide_provider_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 6, count, "three results per provider")
}
