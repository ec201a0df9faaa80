package overpass

import (
	"fmt"

	"github.com/goccy/go-json"

	"driveguide/pkg/model"
)

type response struct {
	Elements []element `json:"elements"`
}

type element struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *center           `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Parse decodes an Overpass JSON response into POIs. Elements without a name
// or without coordinates are skipped, and elements sharing a name and a
// coordinate at 4 decimals are collapsed to the first one.
func Parse(body []byte) ([]model.POI, error) {
	var resp response
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	pois := make([]model.POI, 0, len(resp.Elements))
	seen := make(map[string]struct{}, len(resp.Elements))

	for i := range resp.Elements {
		el := &resp.Elements[i]
		name := elementName(el.Tags)
		if name == "" {
			continue
		}

		lat, lon, ok := el.coordinates()
		if !ok {
			continue
		}

		key := DedupKey(name, lat, lon)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		typ, sub := Classify(el.Tags)
		pois = append(pois, model.POI{
			ID:      fmt.Sprintf("%s-%d", el.Type, el.ID),
			Name:    name,
			Type:    typ,
			SubType: sub,
			Lat:     lat,
			Lon:     lon,
		})
	}
	return pois, nil
}

// DedupKey identifies a POI by name and position rounded to 4 decimals (~11 m).
func DedupKey(name string, lat, lon float64) string {
	return fmt.Sprintf("%s-%.4f-%.4f", name, lat, lon)
}

// Classify maps OSM tags to a POI type and subtype. Tags are checked in
// priority order: tourism, historic, place of worship, natural, leisure.
func Classify(tags map[string]string) (model.POIType, string) {
	if v := tags["tourism"]; v != "" {
		return model.POITypeTourism, v
	}
	if v := tags["historic"]; v != "" {
		return model.POITypeHistoric, v
	}
	if tags["amenity"] == "place_of_worship" {
		if r := tags["religion"]; r != "" {
			return model.POITypeWorship, r
		}
		return model.POITypeWorship, "shrine"
	}
	if v := tags["natural"]; v != "" {
		return model.POITypeNatural, v
	}
	if v := tags["leisure"]; v != "" {
		return model.POITypeLeisure, v
	}
	return model.POITypeOther, "unknown"
}

func elementName(tags map[string]string) string {
	for _, k := range []string{"name", "name:ja", "name:en"} {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func (e *element) coordinates() (lat, lon float64, ok bool) {
	if e.Lat != nil && e.Lon != nil {
		return *e.Lat, *e.Lon, true
	}
	if e.Center != nil {
		return e.Center.Lat, e.Center.Lon, true
	}
	return 0, 0, false
}
