package poi

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"driveguide/pkg/cache"
	"driveguide/pkg/clock"
	"driveguide/pkg/geo"
	"driveguide/pkg/model"
	"driveguide/pkg/overpass"
	"driveguide/pkg/tracker"
)

const (
	DefaultMovementThreshold = 300.0 // meters
	DefaultRateLimit         = 10 * time.Second
	DefaultRadiusFloor       = 2000.0 // meters
	DefaultCellPrecision     = 5
)

// ErrPOINotFound means the id is not among the current results.
var ErrPOINotFound = errors.New("poi not found")

// Fetcher retrieves POIs around a coordinate.
type Fetcher interface {
	Fetch(ctx context.Context, lat, lon, radius float64) ([]model.POI, error)
}

// FallbackFunc supplies POIs when every remote source failed.
type FallbackFunc func(lat, lon, radius float64) []model.POI

// Source names where a refresh result came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceRemote   Source = "remote"
	SourceFallback Source = "fallback"
)

// Config holds the refresh policy.
type Config struct {
	MovementThreshold float64       // meters moved since the last query center
	RateLimit         time.Duration // minimum time between queries
	RadiusFloor       float64       // minimum query radius in meters
	CellPrecision     int           // geohash characters of the cache key
}

// DefaultConfig returns the standard refresh policy.
func DefaultConfig() Config {
	return Config{
		MovementThreshold: DefaultMovementThreshold,
		RateLimit:         DefaultRateLimit,
		RadiusFloor:       DefaultRadiusFloor,
		CellPrecision:     DefaultCellPrecision,
	}
}

// Result is the outcome of a refresh.
type Result struct {
	POIs   []model.POI
	Source Source
	Center geo.Point
	Radius float64
}

// Manager decides when to query for POIs, serves repeat areas from the
// spatial cache and keeps the current result set.
type Manager struct {
	cfg      Config
	fetcher  Fetcher
	fallback FallbackFunc
	cache    *cache.SpatialCache
	clock    clock.Clock
	tracker  *tracker.Tracker
	logger   *slog.Logger

	inFlight atomic.Bool

	mu         sync.RWMutex
	limiter    *rate.Limiter
	lastCenter *geo.Point
	pois       []model.POI
}

// NewManager creates a new POI Manager.
func NewManager(cfg Config, f Fetcher, c *cache.SpatialCache, clk clock.Clock, t *tracker.Tracker) *Manager {
	def := DefaultConfig()
	if cfg.MovementThreshold <= 0 {
		cfg.MovementThreshold = def.MovementThreshold
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RadiusFloor <= 0 {
		cfg.RadiusFloor = def.RadiusFloor
	}
	if cfg.CellPrecision <= 0 {
		cfg.CellPrecision = def.CellPrecision
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if c == nil {
		c = cache.New(cache.DefaultTTL, cache.DefaultMaxEntries, clk)
	}
	if t == nil {
		t = tracker.New()
	}
	return &Manager{
		cfg:      cfg,
		fetcher:  f,
		fallback: overpass.Fallback,
		cache:    c,
		clock:    clk,
		tracker:  t,
		logger:   slog.With("component", "poi_manager"),
		limiter:  rate.NewLimiter(rate.Every(cfg.RateLimit), 1),
	}
}

// SetFallback replaces the dataset used when all remote sources fail.
func (m *Manager) SetFallback(fn FallbackFunc) {
	m.fallback = fn
}

// QueryRadius is the radius actually queried for a given display radius.
func QueryRadius(searchRadius, floor float64) float64 {
	return math.Max(searchRadius*2, floor)
}

// ShouldRefresh reports whether a refresh would run for loc right now: the rate
// limit has elapsed, the observer moved far enough (or never queried) and no
// query is in flight.
func (m *Manager) ShouldRefresh(loc geo.Point) bool {
	if m.inFlight.Load() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dueLocked(loc, m.clock.Now())
}

func (m *Manager) dueLocked(loc geo.Point, now time.Time) bool {
	if m.limiter.TokensAt(now) < 1 {
		return false
	}
	if m.lastCenter == nil {
		return true
	}
	return geo.Distance(*m.lastCenter, loc) >= m.cfg.MovementThreshold
}

// Refresh runs one query cycle for loc if the trigger policy allows it and
// reports whether it ran. At most one refresh runs at a time; a concurrent
// call returns false immediately.
func (m *Manager) Refresh(ctx context.Context, loc geo.Point, searchRadius float64) (Result, bool) {
	if !m.inFlight.CompareAndSwap(false, true) {
		return Result{}, false
	}
	defer m.inFlight.Store(false)

	now := m.clock.Now()
	m.mu.RLock()
	due := m.dueLocked(loc, now)
	m.mu.RUnlock()
	if !due {
		return Result{}, false
	}

	radius := QueryRadius(searchRadius, m.cfg.RadiusFloor)
	key := geo.Cell(loc.Lat, loc.Lon, m.cfg.CellPrecision)
	res := Result{Center: loc, Radius: radius}

	if cached, ok := m.cache.Get(key); ok {
		m.tracker.TrackCacheHit("poi-cache")
		m.logger.Debug("Cache hit", "cell", key, "count", len(cached))
		res.POIs, res.Source = cached, SourceCache
		m.commit(loc, now, cached)
		return res, true
	}
	m.tracker.TrackCacheMiss("poi-cache")

	pois, err := m.fetcher.Fetch(ctx, loc.Lat, loc.Lon, radius)
	switch {
	case err == nil:
		m.cache.Put(key, pois)
		res.POIs, res.Source = pois, SourceRemote
		m.logger.Info("Fetched POIs", "cell", key, "radius", radius, "count", len(pois))
	case errors.Is(err, context.Canceled):
		return Result{}, false
	default:
		res.POIs, res.Source = m.fallback(loc.Lat, loc.Lon, radius), SourceFallback
		m.tracker.TrackFallback("overpass")
		m.logger.Warn("All POI sources failed, using fallback data", "error", err, "count", len(res.POIs))
	}

	m.commit(loc, m.clock.Now(), res.POIs)
	return res, true
}

// commit records the query center and time and replaces the current POIs.
func (m *Manager) commit(loc geo.Point, at time.Time, pois []model.POI) {
	m.mu.Lock()
	defer m.mu.Unlock()
	center := loc
	m.lastCenter = &center
	m.limiter.AllowN(at, 1)
	m.pois = pois
}

// InFlight reports whether a refresh is running.
func (m *Manager) InFlight() bool {
	return m.inFlight.Load()
}

// POIs returns the current result set.
func (m *Manager) POIs() []model.POI {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.POI, len(m.pois))
	copy(out, m.pois)
	return out
}

// Get returns a POI from the current result set by id.
func (m *Manager) Get(id string) (model.POI, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.pois {
		if m.pois[i].ID == id {
			return m.pois[i], nil
		}
	}
	return model.POI{}, ErrPOINotFound
}

// ActiveCount returns the number of current POIs.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pois)
}

// LastCenter returns the center of the last query, if any.
func (m *Manager) LastCenter() (geo.Point, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastCenter == nil {
		return geo.Point{}, false
	}
	return *m.lastCenter, true
}
