package core

import (
	"context"

	"driveguide/pkg/model"
)

// Narrator is the part of the guide orchestrator the pipeline drives.
type Narrator interface {
	Evaluate(ctx context.Context, loc model.LocationSample, pois []model.POI) bool
	IsNarrating() bool
}

// NarrationJob reevaluates automatic narration on every sample with a heading.
type NarrationJob struct {
	single
	narrator Narrator
	state    *State
}

func NewNarrationJob(n Narrator, state *State) *NarrationJob {
	return &NarrationJob{
		narrator: n,
		state:    state,
	}
}

func (j *NarrationJob) Name() string { return "Narration" }

func (j *NarrationJob) ShouldFire(loc *model.LocationSample) bool {
	if j.Busy() || !loc.HasHeading() {
		return false
	}
	return !j.narrator.IsNarrating()
}

func (j *NarrationJob) Run(ctx context.Context, loc *model.LocationSample) {
	j.do(func() {
		j.narrator.Evaluate(ctx, *loc, j.state.POIs())
	})
}
