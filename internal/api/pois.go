package api

import (
	"net/http"

	"github.com/paulmach/orb/geojson"

	"driveguide/pkg/core"
	"driveguide/pkg/geo"
)

// POIHandler serves the current POI set.
type POIHandler struct {
	state *core.State
}

// NewPOIHandler creates a POIHandler.
func NewPOIHandler(state *core.State) *POIHandler {
	return &POIHandler{state: state}
}

// HandleList handles GET /api/pois. The reply is a GeoJSON FeatureCollection,
// nearest first, with distance and direction from the current location.
func (h *POIHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snap := h.state.Snapshot()
	writeJSON(w, http.StatusOK, FeatureCollection(snap))
}

// FeatureCollection renders a snapshot's POIs as GeoJSON points.
func FeatureCollection(snap core.Snapshot) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for i := range snap.POIs {
		v := &snap.POIs[i]
		f := geojson.NewFeature(geo.POIPoint(&v.POI).Orb())
		f.ID = v.ID
		f.Properties["id"] = v.ID
		f.Properties["name"] = v.Name
		f.Properties["type"] = string(v.Type)
		f.Properties["subtype"] = v.SubType
		if snap.Location != nil {
			f.Properties["distance"] = v.Distance
			f.Properties["bearing"] = v.Bearing
			f.Properties["direction"] = string(v.Direction)
		}
		fc.Append(f)
	}
	if snap.Loading {
		fc.ExtraMembers = geojson.Properties{"loading": true}
	}
	return fc
}
