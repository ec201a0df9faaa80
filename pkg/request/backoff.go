package request

import (
	"math/rand/v2"
	"sync"
	"time"

	"driveguide/pkg/clock"
)

// ProviderBackoff tracks consecutive failures per provider. Each failure
// opens a window of base*2^(n-1), capped at max, plus up to 10% jitter.
// Successes walk the count back down one step at a time.
type ProviderBackoff struct {
	mu    sync.Mutex
	state map[string]*backoffState
	base  time.Duration
	max   time.Duration
	clk   clock.Clock
	rng   *rand.Rand
}

type backoffState struct {
	failures    int
	nextAllowed time.Time
}

// NewProviderBackoff creates a backoff tracker.
func NewProviderBackoff(base, maxDelay time.Duration, clk clock.Clock) *ProviderBackoff {
	if clk == nil {
		clk = clock.Real{}
	}
	seed := uint64(clk.Now().UnixNano())
	return &ProviderBackoff{
		state: make(map[string]*backoffState),
		base:  base,
		max:   maxDelay,
		clk:   clk,
		rng:   rand.New(rand.NewPCG(seed, seed>>1)),
	}
}

// RecordFailure counts a failure and returns the window it opened.
func (b *ProviderBackoff) RecordFailure(provider string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[provider]
	if !ok {
		st = &backoffState{}
		b.state[provider] = st
	}
	st.failures++
	d := b.delayLocked(st.failures)
	st.nextAllowed = b.clk.Now().Add(d)
	return d
}

// RecordSuccess takes one failure off the count and clears the window once
// the count is back at zero.
func (b *ProviderBackoff) RecordSuccess(provider string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.state[provider]
	if !ok {
		return
	}
	if st.failures > 0 {
		st.failures--
	}
	if st.failures == 0 {
		delete(b.state, provider)
	}
}

// Delay returns the jittered window for the given failure count.
func (b *ProviderBackoff) Delay(failures int) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delayLocked(failures)
}

func (b *ProviderBackoff) delayLocked(failures int) time.Duration {
	if failures < 1 {
		return 0
	}
	d := b.base
	for i := 1; i < failures && d < b.max; i++ {
		d *= 2
	}
	d = min(d, b.max)
	return d + time.Duration(b.rng.Float64()*0.1*float64(d))
}

// Remaining returns how long the provider's window stays open; zero when
// requests are allowed.
func (b *ProviderBackoff) Remaining(provider string) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.state[provider]
	if !ok {
		return 0
	}
	return max(st.nextAllowed.Sub(b.clk.Now()), 0)
}

// State returns the failure count and window end of a provider.
func (b *ProviderBackoff) State(provider string) (failures int, nextAllowed time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.state[provider]; ok {
		return st.failures, st.nextAllowed
	}
	return 0, time.Time{}
}
