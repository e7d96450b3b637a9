// Package spatial holds the spatial predicates and measurements used when
// editing parcels: containment, geodesic area and bounding boxes.
package spatial

import (
	"math"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// boundaryEpsilon is the distance in degrees within which a point is
// considered to lie on a ring edge.
const boundaryEpsilon = 1e-12

// Contains reports whether pt lies inside the ring using the even-odd
// crossing rule with x = longitude and y = latitude. The ring may be open or
// closed. Points on an edge or vertex count as inside.
func Contains(ring []geometry.Coord, pt geometry.Coord) bool {
	n := len(ring)
	if n < geometry.MinRingVertices {
		return false
	}

	x, y := pt.Lng(), pt.Lat()
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := ring[i].Lng(), ring[i].Lat()
		xj, yj := ring[j].Lng(), ring[j].Lat()

		if onSegment(x, y, xi, yi, xj, yj) {
			return true
		}
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

// ContainsGeometry reports whether pt lies inside a polygon geometry. It is
// false for anything that is not polygon-shaped.
func ContainsGeometry(boundary geometry.Geometry, pt geometry.Coord) bool {
	return Contains(geometry.ExtractRing(boundary), pt)
}

func onSegment(x, y, x1, y1, x2, y2 float64) bool {
	if x < math.Min(x1, x2)-boundaryEpsilon || x > math.Max(x1, x2)+boundaryEpsilon ||
		y < math.Min(y1, y2)-boundaryEpsilon || y > math.Max(y1, y2)+boundaryEpsilon {
		return false
	}
	cross := (x2-x1)*(y-y1) - (y2-y1)*(x-x1)
	length := math.Hypot(x2-x1, y2-y1)
	if length == 0 {
		return math.Hypot(x-x1, y-y1) <= boundaryEpsilon
	}
	return math.Abs(cross)/length <= boundaryEpsilon
}
