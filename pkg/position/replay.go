package position

import (
	"context"

	"driveguide/pkg/model"
)

// Replay emits a fixed sequence of samples, in order, synchronously on Start.
type Replay struct {
	Broadcaster
	samples []model.LocationSample
}

// NewReplay creates a Replay over samples.
func NewReplay(samples []model.LocationSample) *Replay {
	return &Replay{samples: samples}
}

// Start emits every sample unless ctx is canceled first.
func (r *Replay) Start(ctx context.Context) error {
	for _, s := range r.samples {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Emit(s)
	}
	return nil
}

func (r *Replay) Close() error { return nil }
