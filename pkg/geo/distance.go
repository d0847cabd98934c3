// Package geo holds great-circle helpers shared by the aggregator and the API layer.
package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by Haversine.
const EarthRadiusKm = 6371.0

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether both coordinates are finite and inside their ranges.
func (p Point) Valid() bool {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) ||
		math.IsInf(p.Latitude, 0) || math.IsInf(p.Longitude, 0) {
		return false
	}
	return p.Latitude >= -90 && p.Latitude <= 90 && p.Longitude >= -180 && p.Longitude <= 180
}

// Haversine returns the great-circle distance in kilometers between two points.
// Identical points yield exactly 0 and non-finite input yields 0.
func Haversine(from, to Point) float64 {
	if from == to {
		return 0
	}
	if !finite(from) || !finite(to) {
		return 0
	}

	lat1Rad := toRadians(from.Latitude)
	lat2Rad := toRadians(to.Latitude)
	deltaLat := toRadians(to.Latitude - from.Latitude)
	deltaLon := toRadians(to.Longitude - from.Longitude)

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	// rounding can push a marginally above 1 for antipodal points
	a = math.Min(1, math.Max(0, a))

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusKm * c
}

// RoundKm rounds a distance to one decimal kilometer for display.
func RoundKm(km float64) float64 {
	return math.Round(km*10) / 10
}

// FormatDistance renders a distance the way event cards show it.
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%dm away", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1fkm away", km)
}

// KmToMeters converts kilometers to meters.
func KmToMeters(km float64) float64 {
	return km * 1000
}

func finite(p Point) bool {
	return !math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude) &&
		!math.IsInf(p.Latitude, 0) && !math.IsInf(p.Longitude, 0)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}
