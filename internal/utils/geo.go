package utils

import "math"

const earthRadiusMeters = 6371000.0

// CoordinateBounds is an axis-aligned lat/lon box.
type CoordinateBounds struct {
	MinLat float64
	MaxLat float64
	MinLon float64
	MaxLon float64
}

// CalculateBounds returns the box enclosing a circle of radiusMeters around
// (lat, lon).
func CalculateBounds(lat, lon, radiusMeters float64) CoordinateBounds {
	latDelta := radiusMeters / earthRadiusMeters * (180 / math.Pi)
	lonDelta := latDelta / math.Cos(lat*math.Pi/180)
	return CoordinateBounds{
		MinLat: lat - latDelta,
		MaxLat: lat + latDelta,
		MinLon: lon - lonDelta,
		MaxLon: lon + lonDelta,
	}
}

// Distance is the haversine distance in meters between two points.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusMeters * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
