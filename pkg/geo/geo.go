// Package geo provides great-circle distance math and travel-mode
// estimates used by the location service.
package geo

import (
	"math"
	"strings"
)

const (
	earthRadiusMeters = 6371008.8
	metersPerMile     = 1609.344
)

// Haversine returns the great-circle distance in meters between two points
// given in decimal degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dPhi := toRadians(lat2 - lat1)
	dLambda := toRadians(lon2 - lon1)

	a := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// Bearing returns the initial bearing in degrees (0..360) from point 1 to
// point 2.
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := toRadians(lat1)
	phi2 := toRadians(lat2)
	dLambda := toRadians(lon2 - lon1)

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	theta := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(theta+360, 360)
}

// CompassDirection names the 8-point compass direction of a bearing.
func CompassDirection(bearing float64) string {
	dirs := []string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}
	idx := int(math.Round(math.Mod(bearing, 360)/45)) % 8
	return dirs[idx]
}

// MetersToKilometers converts meters to kilometers.
func MetersToKilometers(m float64) float64 {
	return m / 1000
}

// MetersToMiles converts meters to statute miles.
func MetersToMiles(m float64) float64 {
	return m / metersPerMile
}

// Round rounds v to the given number of decimals.
func Round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}

// Mode describes the travel assumptions for a travel mode.
type Mode struct {
	Name string
	// SpeedMPS is the average speed in meters per second.
	SpeedMPS float64
	// DetourFactor scales straight-line distance to an estimated path length.
	DetourFactor float64
	// MaxMeters is the longest path considered routable.
	MaxMeters float64
}

var modes = map[string]Mode{
	"CAR":        {Name: "CAR", SpeedMPS: 13.9, DetourFactor: 1.3, MaxMeters: 2_000_000},
	"BICYCLE":    {Name: "BICYCLE", SpeedMPS: 4.2, DetourFactor: 1.25, MaxMeters: 300_000},
	"PEDESTRIAN": {Name: "PEDESTRIAN", SpeedMPS: 1.4, DetourFactor: 1.2, MaxMeters: 100_000},
}

// LookupMode returns the mode for name (case insensitive).
func LookupMode(name string) (Mode, bool) {
	m, ok := modes[strings.ToUpper(strings.TrimSpace(name))]
	return m, ok
}

// ValidCoordinate reports whether lat/lon are within WGS84 bounds.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lon)
}

// BoundingBox returns the latitude/longitude rectangle enclosing the circle
// of radius meters around lat/lon. Longitude spans the whole globe near the
// poles.
func BoundingBox(lat, lon, radius float64) (minLat, maxLat, minLon, maxLon float64) {
	dLat := radius / earthRadiusMeters * 180 / math.Pi
	minLat = math.Max(lat-dLat, -90)
	maxLat = math.Min(lat+dLat, 90)

	cosLat := math.Cos(toRadians(lat))
	if cosLat < 1e-6 || minLat == -90 || maxLat == 90 {
		return minLat, maxLat, -180, 180
	}
	dLon := dLat / cosLat
	minLon = lon - dLon
	maxLon = lon + dLon
	if minLon < -180 || maxLon > 180 {
		return minLat, maxLat, -180, 180
	}
	return minLat, maxLat, minLon, maxLon
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
