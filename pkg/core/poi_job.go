package core

import (
	"context"
	"log/slog"

	"driveguide/pkg/geo"
	"driveguide/pkg/model"
	"driveguide/pkg/poi"
)

// POIRefresher is the part of the POI manager the pipeline drives.
type POIRefresher interface {
	ShouldRefresh(loc geo.Point) bool
	Refresh(ctx context.Context, loc geo.Point, searchRadius float64) (poi.Result, bool)
}

// RadiusSource supplies the active search radius.
type RadiusSource interface {
	SearchRadius(ctx context.Context) float64
}

// POIJob refreshes the POI set when the observer has moved far enough.
type POIJob struct {
	single
	mgr    POIRefresher
	radius RadiusSource
	state  *State
}

func NewPOIJob(mgr POIRefresher, radius RadiusSource, state *State) *POIJob {
	return &POIJob{
		mgr:    mgr,
		radius: radius,
		state:  state,
	}
}

func (j *POIJob) Name() string { return "POIRefresh" }

func (j *POIJob) ShouldFire(loc *model.LocationSample) bool {
	return !j.Busy() && j.mgr.ShouldRefresh(geo.SamplePoint(*loc))
}

func (j *POIJob) Run(ctx context.Context, loc *model.LocationSample) {
	j.do(func() {
		j.state.SetLoading(true)
		defer j.state.SetLoading(false)
		if res, ok := j.mgr.Refresh(ctx, geo.SamplePoint(*loc), j.radius.SearchRadius(ctx)); ok {
			slog.Debug("POI set refreshed", "source", res.Source, "count", len(res.POIs), "radius", res.Radius)
			j.state.SetPOIs(res.POIs)
		}
	})
}
