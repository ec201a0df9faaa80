package model

import (
	"time"
)

// LocationSample is a single position fix, raw from a source or normalized
// by the location processor.
type LocationSample struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Heading   *float64  `json:"heading"` // degrees clockwise from north, nil when unknown
	Speed     *float64  `json:"speed"`   // m/s, nil when unknown
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`
}

// HasHeading reports whether the sample carries a usable heading.
func (s LocationSample) HasHeading() bool {
	return s.Heading != nil
}

// Float returns a pointer to v, for the optional sample fields.
func Float(v float64) *float64 {
	return &v
}

// POIType is the coarse classification of a point of interest.
type POIType string

const (
	POITypeTourism  POIType = "tourism"
	POITypeHistoric POIType = "historic"
	POITypeWorship  POIType = "worship"
	POITypeNatural  POIType = "natural"
	POITypeLeisure  POIType = "leisure"
	POITypeOther    POIType = "other"
)

// POI is a named point of interest returned by the POI data source.
type POI struct {
	ID      string  `json:"id"` // "<element type>-<element id>", unique per source
	Name    string  `json:"name"`
	Type    POIType `json:"type"`
	SubType string  `json:"subtype"` // e.g. "museum", "shrine", "peak"
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Direction is a POI's position relative to the direction of travel.
type Direction string

const (
	DirectionAhead  Direction = "ahead"
	DirectionRight  Direction = "right"
	DirectionBehind Direction = "behind"
	DirectionLeft   Direction = "left"
)
