package spatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// SquareMetersPerHectare converts square meters to hectares.
const SquareMetersPerHectare = 10000.0

// Area returns the geodesic area enclosed by ring in square meters, computed
// on the WGS84 sphere. The ring may be open or closed and in either winding.
func Area(ring []geometry.Coord) float64 {
	open := geometry.OpenRing(ring)
	if len(open) < geometry.MinRingVertices {
		return 0
	}

	closed := geometry.CloseRing(open)
	r := make(orb.Ring, len(closed))
	for i, c := range closed {
		r[i] = orb.Point(c)
	}
	return math.Abs(geo.Area(orb.Polygon{r}))
}

// AreaHectares returns Area(ring) in hectares.
func AreaHectares(ring []geometry.Coord) float64 {
	return Area(ring) / SquareMetersPerHectare
}
