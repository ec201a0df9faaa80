package model

import (
	"time"
)

// NarrationRequest carries everything the narration generator needs about
// a single POI and the traveller's situation.
type NarrationRequest struct {
	POIName        string    `json:"poiName"`
	POIType        POIType   `json:"poiType"`
	POISubType     string    `json:"poiSubType"`
	DistanceMeters int       `json:"distance"`
	Direction      Direction `json:"direction"`
	Speed          *float64  `json:"speed,omitempty"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
}

// NarrationEvent is emitted once per successful narration.
type NarrationEvent struct {
	ID             string    `json:"id"`
	POIID          string    `json:"poi_id"`
	POIName        string    `json:"poi_name"`
	Text           string    `json:"text"`
	Direction      Direction `json:"direction"`
	DistanceMeters int       `json:"distance"`
	Manual         bool      `json:"manual"`
	Timestamp      time.Time `json:"timestamp"`
}
