// Package apisession keeps per-client state for API handlers, keyed by an
// opaque client identifier such as a forwarded address.
package apisession

import (
	"sync"
	"time"

	"driveguide/pkg/clock"
)

// sweepEvery is how many Get calls pass between lazy evictions.
const sweepEvery = 100

type entry[T any] struct {
	value      *T
	lastAccess time.Time
}

// Store maps client ids to one instance of T each, created on first use.
// Clients idle for longer than the TTL are evicted.
type Store[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	ttl     time.Duration
	newFn   func() *T
	clk     clock.Clock
	gets    int
}

// New creates a Store. newFn builds the state for a client seen for the
// first time.
func New[T any](ttl time.Duration, clk clock.Clock, newFn func() *T) *Store[T] {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Store[T]{
		entries: make(map[string]*entry[T]),
		ttl:     ttl,
		newFn:   newFn,
		clk:     clk,
	}
}

// Get returns the state for id, creating it if needed, and refreshes its
// last-access time.
func (s *Store[T]) Get(id string) *T {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clk.Now()
	s.gets++
	if s.gets%sweepEvery == 0 {
		s.sweepLocked(now)
	}

	e, ok := s.entries[id]
	if !ok || now.Sub(e.lastAccess) > s.ttl {
		e = &entry[T]{value: s.newFn()}
		s.entries[id] = e
	}
	e.lastAccess = now
	return e.value
}

// Delete forgets a client.
func (s *Store[T]) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}

// Sweep evicts every client idle for longer than the TTL.
func (s *Store[T]) Sweep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(s.clk.Now())
}

func (s *Store[T]) sweepLocked(now time.Time) {
	for id, e := range s.entries {
		if now.Sub(e.lastAccess) > s.ttl {
			delete(s.entries, id)
		}
	}
}

// Len returns the number of tracked clients.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
