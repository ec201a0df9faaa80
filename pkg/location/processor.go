// Package location turns raw position fixes into the normalized samples the
// rest of the guide observes: inaccurate fixes are dropped, missing headings
// are derived from movement and all headings are smoothed.
package location

import (
	"log/slog"
	"sync"

	"driveguide/pkg/geo"
	"driveguide/pkg/model"
)

// Config holds the processor thresholds.
type Config struct {
	AccuracyThreshold  float64 // meters; fixes with a larger error radius are discarded
	MinHeadingDistance float64 // meters moved before a heading is derived from positions
	HeadingWindow      int     // number of headings in the smoothing window
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		AccuracyThreshold:  100,
		MinHeadingDistance: 5,
		HeadingWindow:      5,
	}
}

// Processor normalizes a stream of raw samples. It is safe for concurrent use,
// though samples are expected in arrival order.
type Processor struct {
	mu      sync.Mutex
	cfg     Config
	prev    *geo.Point
	history *geo.HeadingHistory
}

// NewProcessor creates a processor with an empty history.
func NewProcessor(cfg Config) *Processor {
	if cfg.HeadingWindow <= 0 {
		cfg.HeadingWindow = DefaultConfig().HeadingWindow
	}
	return &Processor{
		cfg:     cfg,
		history: geo.NewHeadingHistory(cfg.HeadingWindow),
	}
}

// Process normalizes raw and reports whether it was accepted. A discarded
// sample leaves all processor state untouched.
func (p *Processor) Process(raw model.LocationSample) (model.LocationSample, bool) {
	if raw.Accuracy > p.cfg.AccuracyThreshold {
		slog.Debug("Location: discarding inaccurate fix", "accuracy", raw.Accuracy, "threshold", p.cfg.AccuracyThreshold)
		return model.LocationSample{}, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	curr := geo.SamplePoint(raw)
	out := raw

	var heading *float64
	if raw.Heading != nil {
		h := *raw.Heading
		heading = &h
	} else if p.prev != nil && geo.Distance(*p.prev, curr) >= p.cfg.MinHeadingDistance {
		h := geo.Bearing(*p.prev, curr)
		heading = &h
	}

	if heading != nil {
		smoothed := p.history.Push(*heading)
		out.Heading = &smoothed
	} else {
		out.Heading = nil
	}

	p.prev = &curr
	return out, true
}

// Reset forgets the previous position and heading history.
func (p *Processor) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.prev = nil
	p.history.Reset()
}
