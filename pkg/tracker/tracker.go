// Package tracker counts cache, request and fallback outcomes per provider.
// Providers are remote hosts ("overpass-api.de", "gemini") or local sources
// ("poi-cache").
package tracker

import (
	"sync"
	"sync/atomic"
)

// Outcome is one kind of counted event.
type Outcome int

const (
	CacheHit Outcome = iota
	CacheMiss
	APISuccess
	APIFailure
	APIZero // request succeeded with an empty result
	Fallback
	numOutcomes
)

type counters [numOutcomes]atomic.Int64

// Tracker is safe for concurrent use.
type Tracker struct {
	mu        sync.RWMutex
	providers map[string]*counters
}

// ProviderStats is a point-in-time copy of one provider's counters.
type ProviderStats struct {
	CacheHits     int64
	CacheMisses   int64
	APISuccess    int64
	APIFailures   int64
	APIZeroResult int64
	Fallbacks     int64
}

// HitRate returns cache hits as a whole percentage of lookups.
func (s ProviderStats) HitRate() int64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return s.CacheHits * 100 / total
}

// New creates an empty Tracker.
func New() *Tracker {
	return &Tracker{providers: make(map[string]*counters)}
}

func (t *Tracker) counters(provider string) *counters {
	t.mu.RLock()
	c, ok := t.providers[provider]
	t.mu.RUnlock()
	if ok {
		return c
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok = t.providers[provider]; !ok {
		c = &counters{}
		t.providers[provider] = c
	}
	return c
}

// Inc counts one event for provider.
func (t *Tracker) Inc(provider string, o Outcome) {
	if o < 0 || o >= numOutcomes {
		return
	}
	t.counters(provider)[o].Add(1)
}

func (t *Tracker) TrackCacheHit(provider string)   { t.Inc(provider, CacheHit) }
func (t *Tracker) TrackCacheMiss(provider string)  { t.Inc(provider, CacheMiss) }
func (t *Tracker) TrackAPISuccess(provider string) { t.Inc(provider, APISuccess) }
func (t *Tracker) TrackAPIFailure(provider string) { t.Inc(provider, APIFailure) }
func (t *Tracker) TrackAPIZero(provider string)    { t.Inc(provider, APIZero) }

// TrackFallback counts a result served from static or templated data
// instead of the provider.
func (t *Tracker) TrackFallback(provider string) { t.Inc(provider, Fallback) }

// Reset forgets every provider.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.providers = make(map[string]*counters)
}

// Snapshot copies the current counters.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make(map[string]ProviderStats, len(t.providers))
	for name, c := range t.providers {
		out[name] = ProviderStats{
			CacheHits:     c[CacheHit].Load(),
			CacheMisses:   c[CacheMiss].Load(),
			APISuccess:    c[APISuccess].Load(),
			APIFailures:   c[APIFailure].Load(),
			APIZeroResult: c[APIZero].Load(),
			Fallbacks:     c[Fallback].Load(),
		}
	}
	return out
}
