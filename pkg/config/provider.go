package config

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"driveguide/pkg/store"
)

// Runtime setting keys in the settings store.
const (
	KeyAutoNarrate       = "auto_narrate"
	KeySearchRadius      = "search_radius"
	KeyNarrationCooldown = "narration_cooldown"
	KeySimSource         = "sim_source"
)

// Provider serves settings that can change while the guide runs. Values
// stored at runtime override the static file; unparseable values fall back
// to it.
type Provider interface {
	SimProvider(ctx context.Context) string
	AutoNarrate(ctx context.Context) bool
	SearchRadius(ctx context.Context) float64
	NarrationCooldown(ctx context.Context) time.Duration

	SetAutoNarrate(ctx context.Context, on bool) error
	SetSearchRadius(ctx context.Context, r float64) error
	SetNarrationCooldown(ctx context.Context, d time.Duration) error

	// AppConfig exposes the static configuration.
	AppConfig() *Config
}

// setting binds a key to its codec and the static default.
type setting[T any] struct {
	key    string
	parse  func(string) (T, error)
	format func(T) string
	valid  func(T) bool // nil accepts everything
}

func (s setting[T]) get(ctx context.Context, st store.StateStore, fallback T) T {
	raw, ok := st.GetState(ctx, s.key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := s.parse(raw)
	if err != nil || (s.valid != nil && !s.valid(v)) {
		return fallback
	}
	return v
}

func (s setting[T]) set(ctx context.Context, st store.StateStore, v T) error {
	return st.SetState(ctx, s.key, s.format(v))
}

func parseFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }
func formatFloat(f float64) string         { return strconv.FormatFloat(f, 'f', -1, 64) }

// UnifiedProvider implements Provider on a static Config plus a StateStore.
type UnifiedProvider struct {
	base  *Config
	store store.StateStore

	autoNarrate setting[bool]
	radius      setting[float64]
	cooldown    setting[time.Duration]
	simSource   setting[string]
}

// NewProvider creates a provider. With a nil store, runtime changes live in
// memory until exit.
func NewProvider(base *Config, st store.StateStore) *UnifiedProvider {
	if st == nil {
		st = &memStore{m: make(map[string]string)}
	}
	return &UnifiedProvider{
		base:        base,
		store:       st,
		autoNarrate: setting[bool]{key: KeyAutoNarrate, parse: strconv.ParseBool, format: strconv.FormatBool},
		radius:      setting[float64]{key: KeySearchRadius, parse: parseFloat, format: formatFloat, valid: base.IsRadiusPreset},
		cooldown: setting[time.Duration]{key: KeyNarrationCooldown, parse: ParseDuration,
			format: time.Duration.String, valid: func(d time.Duration) bool { return d >= 0 }},
		simSource: setting[string]{key: KeySimSource,
			parse: func(s string) (string, error) { return s, nil }, format: func(s string) string { return s }},
	}
}

func (p *UnifiedProvider) AppConfig() *Config { return p.base }

func (p *UnifiedProvider) SimProvider(ctx context.Context) string {
	fallback := p.base.Sim.Provider
	if fallback == "" {
		fallback = "mock"
	}
	return p.simSource.get(ctx, p.store, fallback)
}

func (p *UnifiedProvider) AutoNarrate(ctx context.Context) bool {
	return p.autoNarrate.get(ctx, p.store, p.base.Narrator.AutoNarrate)
}

// SearchRadius ignores stored values that are no longer a configured preset.
func (p *UnifiedProvider) SearchRadius(ctx context.Context) float64 {
	return p.radius.get(ctx, p.store, float64(p.base.POI.SearchRadius))
}

func (p *UnifiedProvider) NarrationCooldown(ctx context.Context) time.Duration {
	return p.cooldown.get(ctx, p.store, time.Duration(p.base.Narrator.Cooldown))
}

func (p *UnifiedProvider) SetAutoNarrate(ctx context.Context, on bool) error {
	return p.autoNarrate.set(ctx, p.store, on)
}

func (p *UnifiedProvider) SetSearchRadius(ctx context.Context, r float64) error {
	if !p.base.IsRadiusPreset(r) {
		return &InvalidRadiusError{Radius: r, Presets: p.base.POI.RadiusPresets}
	}
	return p.radius.set(ctx, p.store, r)
}

func (p *UnifiedProvider) SetNarrationCooldown(ctx context.Context, d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("narration cooldown must not be negative: %v", d)
	}
	return p.cooldown.set(ctx, p.store, d)
}

// InvalidRadiusError reports a search radius outside the preset list.
type InvalidRadiusError struct {
	Radius  float64
	Presets []float64
}

func (e *InvalidRadiusError) Error() string {
	return fmt.Sprintf("search radius %s is not one of %v", formatFloat(e.Radius), e.Presets)
}

type memStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func (s *memStore) GetState(_ context.Context, key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	return v, ok
}

func (s *memStore) SetState(_ context.Context, key, val string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = val
	return nil
}

func (s *memStore) DeleteState(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
	return nil
}
