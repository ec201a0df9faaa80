// Package narrator decides which POI to narrate and when.
package narrator

import (
	"context"
	"errors"
	"time"

	"driveguide/pkg/model"
)

var (
	// ErrNoHeading is returned when narration is requested before the heading is known.
	ErrNoHeading = errors.New("heading unknown")
	// ErrBusy is returned while another narration is in flight.
	ErrBusy = errors.New("narration already in progress")
)

// Generator produces narration text for a POI.
type Generator interface {
	Narrate(ctx context.Context, req *model.NarrationRequest) (string, error)
}

// Settings exposes the runtime-tunable narration settings.
type Settings interface {
	AutoNarrate(ctx context.Context) bool
	SearchRadius(ctx context.Context) float64
	NarrationCooldown(ctx context.Context) time.Duration
}

// Recorder persists delivered narrations.
type Recorder interface {
	SaveNarration(ctx context.Context, ev model.NarrationEvent) error
}

// Config holds the fixed narration policy.
type Config struct {
	NarratedExpiry time.Duration
	HistorySize    int
}

// DefaultConfig returns the stock policy: 5 minute dedup window, 20 history entries.
func DefaultConfig() Config {
	return Config{
		NarratedExpiry: 5 * time.Minute,
		HistorySize:    20,
	}
}

// StaticSettings is a fixed Settings value, handy when no runtime store is wired.
type StaticSettings struct {
	Auto     bool
	Radius   float64
	Cooldown time.Duration
}

func (s StaticSettings) AutoNarrate(context.Context) bool                { return s.Auto }
func (s StaticSettings) SearchRadius(context.Context) float64            { return s.Radius }
func (s StaticSettings) NarrationCooldown(context.Context) time.Duration { return s.Cooldown }
