package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// earthRadiusMeters is the spherical earth radius used for great-circle
// distances.
const earthRadiusMeters = 6371000.0

// Distance returns the Haversine great-circle distance between two points in
// meters. It is symmetric and returns 0 for identical coordinates.
func Distance(a, b orb.Point) float64 {
	lat1 := a.Lat() * math.Pi / 180
	lat2 := b.Lat() * math.Pi / 180
	dLat := (b.Lat() - a.Lat()) * math.Pi / 180
	dLon := (b.Lon() - a.Lon()) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)

	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLon*sinLon
	// Floating point drift can push h a hair past 1 for near-antipodal
	// points, which would make Sqrt(1-h) NaN.
	if h > 1 {
		h = 1
	}
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}
