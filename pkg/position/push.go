package position

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	"driveguide/pkg/clock"
	"driveguide/pkg/model"
)

// ErrInvalidSample is returned for coordinates outside the valid range.
var ErrInvalidSample = errors.New("invalid location sample")

// ErrClosed is returned when pushing to a closed source.
var ErrClosed = errors.New("position source closed")

// Push is fed externally, e.g. by a phone posting fixes over HTTP.
type Push struct {
	Broadcaster
	clk    clock.Clock
	closed atomic.Bool
}

// NewPush creates a Push source.
func NewPush(clk clock.Clock) *Push {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Push{clk: clk}
}

func (p *Push) Start(ctx context.Context) error { return nil }

func (p *Push) Close() error {
	p.closed.Store(true)
	return nil
}

// Push validates s and emits it. A zero timestamp is set to now.
func (p *Push) Push(s model.LocationSample) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if err := Validate(s); err != nil {
		return err
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = p.clk.Now()
	}
	p.Emit(s)
	return nil
}

// Validate rejects samples that no processing could make sense of.
func Validate(s model.LocationSample) error {
	switch {
	case math.IsNaN(s.Latitude) || s.Latitude < -90 || s.Latitude > 90:
		return ErrInvalidSample
	case math.IsNaN(s.Longitude) || s.Longitude < -180 || s.Longitude > 180:
		return ErrInvalidSample
	case s.Accuracy < 0:
		return ErrInvalidSample
	case s.Heading != nil && (math.IsNaN(*s.Heading) || *s.Heading < 0 || *s.Heading >= 360):
		return ErrInvalidSample
	}
	return nil
}
