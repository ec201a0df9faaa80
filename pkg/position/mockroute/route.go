// Package mockroute drives a fixed loop through central Tokyo for demos and
// development without a real GPS fix.
package mockroute

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"driveguide/pkg/clock"
	"driveguide/pkg/model"
	"driveguide/pkg/position"
)

const (
	DefaultTick     = 3 * time.Second
	DefaultAccuracy = 10.0
)

// Waypoint is one recorded fix of the demo drive. Speed is in m/s.
type Waypoint struct {
	Lat, Lon, Heading, Speed float64
}

// DefaultRoute is a closed loop around Shiba Park and Tokyo Tower.
var DefaultRoute = []Waypoint{
	{35.6545, 139.7468, 10, 8},
	{35.6552, 139.7470, 15, 10},
	{35.6560, 139.7472, 12, 11},
	{35.6568, 139.7473, 8, 10},
	{35.6575, 139.7474, 5, 9},
	{35.6582, 139.7470, 350, 8},
	{35.6590, 139.7462, 340, 10},
	{35.6598, 139.7455, 330, 11},
	{35.6600, 139.7448, 280, 8},
	{35.6596, 139.7438, 220, 9},
	{35.6588, 139.7432, 200, 10},
	{35.6578, 139.7430, 190, 11},
	{35.6568, 139.7432, 175, 10},
	{35.6558, 139.7440, 140, 9},
	{35.6550, 139.7450, 100, 8},
	{35.6548, 139.7460, 50, 9},
	{35.6545, 139.7468, 10, 8},
}

// Config holds the driver's timing.
type Config struct {
	Tick     time.Duration
	Accuracy float64
	Route    []Waypoint
}

// Driver emits the route's waypoints one per tick, looping forever.
// It implements position.Source.
type Driver struct {
	position.Broadcaster

	cfg Config
	clk clock.Clock

	mu      sync.Mutex
	idx     int
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

var _ position.Source = (*Driver)(nil)

// New creates a stopped driver. Zero config fields take defaults.
func New(cfg Config, clk clock.Clock) *Driver {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	if cfg.Accuracy <= 0 {
		cfg.Accuracy = DefaultAccuracy
	}
	if len(cfg.Route) == 0 {
		cfg.Route = DefaultRoute
	}
	if clk == nil {
		clk = clock.Real{}
	}
	return &Driver{cfg: cfg, clk: clk}
}

// Start resets the route to its first waypoint, emits it immediately and
// keeps emitting one waypoint per tick until Stop or ctx is done.
// Starting a running driver does nothing.
func (d *Driver) Start(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return nil
	}
	d.running = true
	d.idx = 0
	d.stopCh = make(chan struct{})
	stopCh := d.stopCh
	d.mu.Unlock()

	slog.Info("Mock route started", "waypoints", len(d.cfg.Route), "tick", d.cfg.Tick)
	d.step()

	d.wg.Add(1)
	go d.loop(ctx, stopCh)
	return nil
}

func (d *Driver) loop(ctx context.Context, stopCh chan struct{}) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.cfg.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.mu.Lock()
			if d.stopCh == stopCh {
				d.running = false
			}
			d.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			d.step()
		}
	}
}

func (d *Driver) step() {
	d.mu.Lock()
	wp := d.cfg.Route[d.idx]
	d.idx = (d.idx + 1) % len(d.cfg.Route)
	d.mu.Unlock()

	d.Emit(model.LocationSample{
		Latitude:  wp.Lat,
		Longitude: wp.Lon,
		Heading:   model.Float(wp.Heading),
		Speed:     model.Float(wp.Speed),
		Accuracy:  d.cfg.Accuracy,
		Timestamp: d.clk.Now(),
	})
}

// Stop halts emission and rewinds the route. Stopping a stopped driver does nothing.
func (d *Driver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.idx = 0
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()

	d.mu.Lock()
	d.idx = 0
	d.mu.Unlock()
	slog.Info("Mock route stopped")
}

// Running reports whether the driver is emitting.
func (d *Driver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *Driver) Close() error {
	d.Stop()
	return nil
}
