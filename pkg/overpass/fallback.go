package overpass

import (
	"driveguide/pkg/geo"
	"driveguide/pkg/model"
)

// demoPOIs covers the Shiba Park / Tokyo Tower demo route so the guide keeps
// working when no Overpass mirror is reachable.
var demoPOIs = []model.POI{
	{ID: "demo-1", Name: "Tokyo Tower", Type: model.POITypeTourism, SubType: "attraction", Lat: 35.6586, Lon: 139.7454},
	{ID: "demo-2", Name: "Zojo-ji", Type: model.POITypeWorship, SubType: "temple", Lat: 35.6578, Lon: 139.7517},
	{ID: "demo-3", Name: "Shiba Park", Type: model.POITypeLeisure, SubType: "park", Lat: 35.6553, Lon: 139.7494},
	{ID: "demo-4", Name: "Shiba Toshogu", Type: model.POITypeWorship, SubType: "shrine", Lat: 35.6563, Lon: 139.7498},
	{ID: "demo-5", Name: "Akabanebashi", Type: model.POITypeHistoric, SubType: "monument", Lat: 35.6545, Lon: 139.7442},
	{ID: "demo-6", Name: "Tokyo Prince Hotel", Type: model.POITypeTourism, SubType: "hotel", Lat: 35.6567, Lon: 139.7487},
	{ID: "demo-7", Name: "Former Taitoku-in Mausoleum Gate", Type: model.POITypeHistoric, SubType: "memorial", Lat: 35.6569, Lon: 139.7509},
	{ID: "demo-8", Name: "Roppongi Hills", Type: model.POITypeTourism, SubType: "attraction", Lat: 35.6605, Lon: 139.7292},
	{ID: "demo-9", Name: "Azabu-Juban Shopping Street", Type: model.POITypeTourism, SubType: "attraction", Lat: 35.6546, Lon: 139.7369},
	{ID: "demo-10", Name: "Atago Shrine", Type: model.POITypeWorship, SubType: "shrine", Lat: 35.6612, Lon: 139.7494},
	{ID: "demo-11", Name: "Hibiya Shrine", Type: model.POITypeWorship, SubType: "shrine", Lat: 35.6603, Lon: 139.7558},
	{ID: "demo-12", Name: "Hama-rikyu Gardens", Type: model.POITypeLeisure, SubType: "garden", Lat: 35.6594, Lon: 139.7636},
	{ID: "demo-13", Name: "Shiba Maruyama Kofun", Type: model.POITypeHistoric, SubType: "archaeological_site", Lat: 35.6558, Lon: 139.7490},
	{ID: "demo-14", Name: "Keyakizaka Street", Type: model.POITypeTourism, SubType: "attraction", Lat: 35.6598, Lon: 139.7300},
	{ID: "demo-15", Name: "Mita Kasuga Shrine", Type: model.POITypeWorship, SubType: "shrine", Lat: 35.6508, Lon: 139.7446},
}

// Fallback returns the demo POIs within radius meters of (lat, lon).
func Fallback(lat, lon, radius float64) []model.POI {
	origin := geo.Point{Lat: lat, Lon: lon}
	out := make([]model.POI, 0, len(demoPOIs))
	for i := range demoPOIs {
		if geo.Distance(origin, geo.POIPoint(&demoPOIs[i])) <= radius {
			out = append(out, demoPOIs[i])
		}
	}
	return out
}
