// Package geo provides great-circle math over WGS84 coordinates.
// Straight-line distance is a deliberate stand-in for road distance
// in the rural areas this system serves.
package geo

import (
	"math"

	"taxirural/internal/domain"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371

// DistanceKm returns the haversine great-circle distance between two
// points in kilometers.
func DistanceKm(a, b domain.GeoPoint) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// Bearing returns the initial great-circle bearing from a to b in
// degrees, normalized to [0, 360).
func Bearing(a, b domain.GeoPoint) float64 {
	lat1 := rad(a.Lat)
	lat2 := rad(b.Lat)
	dLng := rad(b.Lng - a.Lng)

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)

	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// ValidLatitude reports whether lat is a legal WGS84 latitude.
func ValidLatitude(lat float64) bool {
	return lat >= -90 && lat <= 90
}

// ValidLongitude reports whether lng is a legal WGS84 longitude.
func ValidLongitude(lng float64) bool {
	return lng >= -180 && lng <= 180
}

func rad(deg float64) float64 {
	return deg * math.Pi / 180
}
