// Package cache holds recent POI query results keyed by spatial cell.
package cache

import (
	"sync"
	"time"

	"driveguide/pkg/clock"
	"driveguide/pkg/model"
)

const (
	DefaultTTL        = 5 * time.Minute
	DefaultMaxEntries = 50
)

type entry struct {
	pois      []model.POI
	timestamp time.Time
}

// SpatialCache is a bounded, TTL-expiring map from cell key to POI list.
// Expiry is lazy: a stale entry is removed when it is read.
type SpatialCache struct {
	mu         sync.Mutex
	entries    map[string]entry
	ttl        time.Duration
	maxEntries int
	clock      clock.Clock
}

// New creates a cache. Non-positive limits fall back to the defaults.
func New(ttl time.Duration, maxEntries int, clk clock.Clock) *SpatialCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &SpatialCache{
		entries:    make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clk,
	}
}

// Get returns the POIs stored under key. An entry whose age has reached the
// TTL is deleted and reported absent.
func (c *SpatialCache) Get(key string) ([]model.POI, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.clock.Now().Sub(e.timestamp) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.pois, true
}

// Put stores pois under key. Inserting a new key into a full cache first
// evicts the entry with the oldest timestamp.
func (c *SpatialCache) Put(key string, pois []model.POI) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = entry{pois: pois, timestamp: c.clock.Now()}
}

func (c *SpatialCache) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range c.entries {
		if first || e.timestamp.Before(oldest) {
			oldestKey = k
			oldest = e.timestamp
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Len returns the number of stored entries, including not-yet-collected stale ones.
func (c *SpatialCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *SpatialCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}
