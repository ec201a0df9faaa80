package geo

import (
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"

	"driveguide/pkg/model"
)

// EarthRadius is the mean Earth radius in meters used by all distance math.
const EarthRadius = 6371000

// Point represents a geographic coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// SamplePoint returns the coordinate of a location sample.
func SamplePoint(s model.LocationSample) Point {
	return Point{Lat: s.Latitude, Lon: s.Longitude}
}

// POIPoint returns the coordinate of a POI.
func POIPoint(p *model.POI) Point {
	return Point{Lat: p.Lat, Lon: p.Lon}
}

// Orb converts p to an orb point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	dLat := (p2.Lat - p1.Lat) * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLon/2)*math.Sin(dLon/2)*math.Cos(lat1)*math.Cos(lat2)

	return 2 * EarthRadius * math.Asin(math.Sqrt(a))
}

// DestinationPoint calculates the destination point from a start point, given distance (in meters) and bearing (in degrees).
func DestinationPoint(start Point, distMeters, bearing float64) Point {
	lat1 := start.Lat * (math.Pi / 180.0)
	lon1 := start.Lon * (math.Pi / 180.0)
	brng := bearing * (math.Pi / 180.0)
	d := distMeters / EarthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) +
		math.Cos(lat1)*math.Sin(d)*math.Cos(brng))
	lon2 := lon1 + math.Atan2(math.Sin(brng)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return Point{
		Lat: lat2 * (180.0 / math.Pi),
		Lon: lon2 * (180.0 / math.Pi),
	}
}

// Bearing calculates the initial bearing (forward azimuth) from p1 to p2 in degrees, in [0, 360).
func Bearing(p1, p2 Point) float64 {
	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	brng := math.Atan2(y, x)

	return normalizeDegrees(brng * (180.0 / math.Pi))
}

// RelativeDirection classifies a bearing relative to the direction of travel.
// The sectors are asymmetric: ahead covers [330, 30], right (30, 150),
// left [210, 330) and behind the remaining [150, 210).
func RelativeDirection(heading, bearing float64) model.Direction {
	r := normalizeDegrees(bearing - heading)

	switch {
	case r <= 30 || r >= 330:
		return model.DirectionAhead
	case r > 30 && r < 150:
		return model.DirectionRight
	case r >= 210 && r < 330:
		return model.DirectionLeft
	default:
		return model.DirectionBehind
	}
}

// CircularMean averages angles on the unit circle so that 350 and 10 average to 0.
// An empty input yields 0.
func CircularMean(headings []float64) float64 {
	if len(headings) == 0 {
		return 0
	}
	var sinSum, cosSum float64
	for _, h := range headings {
		rad := h * (math.Pi / 180.0)
		sinSum += math.Sin(rad)
		cosSum += math.Cos(rad)
	}
	n := float64(len(headings))
	mean := math.Atan2(sinSum/n, cosSum/n) * (180.0 / math.Pi)
	return normalizeDegrees(mean)
}

// Cell returns the geohash of the coordinate at the given precision (characters).
func Cell(lat, lon float64, precision int) string {
	if precision <= 0 {
		precision = 5
	}
	return geohash.EncodeWithPrecision(lat, lon, uint(precision))
}

// FormatDistance renders meters as "420m" or "1.3km".
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%dm", int(math.Round(meters)))
	}
	return fmt.Sprintf("%.1fkm", meters/1000)
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	if deg >= 360 {
		deg = 0
	}
	return deg
}
