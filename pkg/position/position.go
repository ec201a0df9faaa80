// Package position provides sources of raw location samples.
package position

import (
	"context"
	"sync"

	"driveguide/pkg/model"
)

// Source emits raw location samples to its subscribers.
type Source interface {
	// Subscribe registers fn for every emitted sample.
	Subscribe(fn func(model.LocationSample))
	// Start begins emission. Calling Start on a running source is a no-op.
	Start(ctx context.Context) error
	// Close stops emission and releases resources.
	Close() error
}

// Broadcaster fans samples out to subscribers in registration order.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []func(model.LocationSample)
}

// Subscribe registers fn.
func (b *Broadcaster) Subscribe(fn func(model.LocationSample)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Emit delivers s to every subscriber synchronously.
func (b *Broadcaster) Emit(s model.LocationSample) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(s)
	}
}
