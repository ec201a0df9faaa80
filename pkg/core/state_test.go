package core

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driveguide/pkg/clock"
	"driveguide/pkg/geo"
	"driveguide/pkg/model"
)

var origin = geo.Point{Lat: 35.0, Lon: 139.0}

func poiAt(id string, distance, bearing float64) model.POI {
	p := geo.DestinationPoint(origin, distance, bearing)
	return model.POI{ID: id, Name: "POI " + id, Type: model.POITypeTourism, SubType: "attraction", Lat: p.Lat, Lon: p.Lon}
}

func sampleAt(p geo.Point, heading *float64) model.LocationSample {
	return model.LocationSample{Latitude: p.Lat, Longitude: p.Lon, Heading: heading, Accuracy: 10}
}

func TestState_Snapshot(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := NewState(clock.NewFake(now))

	snap := s.Snapshot()
	assert.Nil(t, snap.Location)
	assert.Empty(t, snap.POIs)

	s.SetPOIs([]model.POI{poiAt("far", 800, 90), poiAt("near", 200, 0), poiAt("back", 400, 180)})
	snap = s.Snapshot()
	require.Len(t, snap.POIs, 3)
	assert.Zero(t, snap.POIs[0].Distance, "no location yet")

	s.SetLocation(sampleAt(origin, model.Float(0)))
	snap = s.Snapshot()
	require.NotNil(t, snap.Location)
	assert.Equal(t, now, snap.UpdatedAt)

	ids := []string{snap.POIs[0].ID, snap.POIs[1].ID, snap.POIs[2].ID}
	assert.Equal(t, []string{"near", "back", "far"}, ids)
	assert.InDelta(t, 200, snap.POIs[0].Distance, 1)
	assert.Equal(t, model.DirectionAhead, snap.POIs[0].Direction)
	assert.Equal(t, model.DirectionBehind, snap.POIs[1].Direction)
	assert.Equal(t, model.DirectionRight, snap.POIs[2].Direction)
}

func TestState_Subscribe(t *testing.T) {
	s := NewState(nil)
	var snaps []Snapshot
	s.Subscribe(func(sn Snapshot) { snaps = append(snaps, sn) })

	s.SetLocationError("no fix")
	s.SetLoading(true)
	s.SetLocation(sampleAt(origin, nil))
	s.SetLoading(false)

	require.Len(t, snaps, 4)
	assert.Equal(t, "no fix", snaps[0].LocationError)
	assert.True(t, snaps[1].Loading)
	assert.Empty(t, snaps[2].LocationError, "a fix clears the error")
	assert.False(t, snaps[3].Loading)

	loc, ok := s.Location()
	require.True(t, ok)
	assert.Equal(t, origin.Lat, loc.Latitude)
}

func TestState_SubscribeOrdered(t *testing.T) {
	s := NewState(clock.Real{})
	var snaps []Snapshot
	s.Subscribe(func(sn Snapshot) { snaps = append(snaps, sn) })

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if w%2 == 0 {
					s.SetLoading(i%2 == 0)
				} else {
					s.SetPOIs([]model.POI{poiAt("a", 100, 0)})
				}
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, snaps, 400)
	for i := 1; i < len(snaps); i++ {
		require.False(t, snaps[i].UpdatedAt.Before(snaps[i-1].UpdatedAt), "snapshot %d delivered out of order", i)
	}
	assert.Equal(t, s.Snapshot().UpdatedAt, snaps[len(snaps)-1].UpdatedAt)
}

func TestState_POIsCopy(t *testing.T) {
	s := NewState(nil)
	s.SetPOIs([]model.POI{poiAt("a", 100, 0)})
	got := s.POIs()
	got[0].Name = "changed"
	assert.Equal(t, "POI a", s.POIs()[0].Name)
}
