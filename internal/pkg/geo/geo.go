package geo

import "math"

const earthRadiusMeters = 6371000

// Distance returns the haversine great-circle distance in meters between two
// WGS84 coordinates.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// WithinRadius reports whether the two coordinates are at most radiusMeters apart.
func WithinRadius(lat1, lon1, lat2, lon2, radiusMeters float64) bool {
	return Distance(lat1, lon1, lat2, lon2) <= radiusMeters
}

// ValidCoordinates reports whether lat/lng form a plausible WGS84 point.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
