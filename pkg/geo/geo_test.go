package geo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHaversine(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		toleranceKm            float64
	}{
		{name: "same point", lat1: 40.0, lon1: -75.0, lat2: 40.0, lon2: -75.0, wantKm: 0, toleranceKm: 0.001},
		{name: "new york to los angeles", lat1: 40.7128, lon1: -74.0060, lat2: 34.0522, lon2: -118.2437, wantKm: 3936, toleranceKm: 10},
		{name: "one degree of latitude", lat1: 0, lon1: 0, lat2: 1, lon2: 0, wantKm: 111.19, toleranceKm: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Haversine(tt.lat1, tt.lon1, tt.lat2, tt.lon2) / 1000
			require.InDelta(t, tt.wantKm, got, tt.toleranceKm)
		})
	}
}

func TestUnitConversions(t *testing.T) {
	require.Equal(t, 1.5, MetersToKilometers(1500))
	require.InDelta(t, 1.0, MetersToMiles(1609.344), 1e-9)
	require.Equal(t, 3.14, Round(3.14159, 2))
}

func TestBearingAndCompass(t *testing.T) {
	require.InDelta(t, 0, Bearing(0, 0, 1, 0), 1e-6)
	require.InDelta(t, 90, Bearing(0, 0, 0, 1), 1e-6)
	require.Equal(t, "north", CompassDirection(0))
	require.Equal(t, "east", CompassDirection(90))
	require.Equal(t, "north", CompassDirection(359))
	require.Equal(t, "southwest", CompassDirection(225))
}

func TestLookupMode(t *testing.T) {
	m, ok := LookupMode(" car ")
	require.True(t, ok)
	require.Equal(t, "CAR", m.Name)

	_, ok = LookupMode("TELEPORT")
	require.False(t, ok)
}

func TestValidCoordinate(t *testing.T) {
	require.True(t, ValidCoordinate(90, 180))
	require.False(t, ValidCoordinate(90.1, 0))
	require.False(t, ValidCoordinate(0, -180.5))
}

func TestBoundingBox(t *testing.T) {
	minLat, maxLat, minLon, maxLon := BoundingBox(40, -75, 10_000)
	require.Less(t, minLat, 40.0)
	require.Greater(t, maxLat, 40.0)
	require.Less(t, minLon, -75.0)
	require.Greater(t, maxLon, -75.0)

	// The box edges lie about radius away along each axis.
	require.GreaterOrEqual(t, Haversine(40, -75, maxLat, -75), 9_999.0)
	require.GreaterOrEqual(t, Haversine(40, -75, 40, maxLon), 9_999.0)

	_, _, minLon, maxLon = BoundingBox(89.99, 0, 10_000)
	require.Equal(t, -180.0, minLon)
	require.Equal(t, 180.0, maxLon)
}
