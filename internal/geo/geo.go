// Package geo provides the distance and ETA math used across the service.
package geo

import (
	"fmt"
	"math"
)

// earthRadiusKm is the mean Earth radius used by the haversine formula.
const earthRadiusKm = 6371.0

// avgUrbanSpeedKmh is the fixed speed assumption behind ETA estimates.
const avgUrbanSpeedKmh = 30.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm returns the great-circle distance between two points in kilometers.
// Symmetric and deterministic; DistanceKm(a, a) == 0.
func DistanceKm(a, b Point) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// ETAMinutes estimates travel time in minutes at the fixed urban speed.
func ETAMinutes(distanceKm float64) float64 {
	return distanceKm / avgUrbanSpeedKmh * 60
}

// FormatETA renders an ETA for display: "<1" under a minute, otherwise the
// nearest whole minute.
func FormatETA(minutes float64) string {
	if minutes < 1 {
		return "<1"
	}
	return fmt.Sprintf("%d", int(math.Round(minutes)))
}
