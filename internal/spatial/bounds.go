package spatial

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// BoundOf returns the bounding box of coords. ok is false when coords is empty.
func BoundOf(coords []geometry.Coord) (b orb.Bound, ok bool) {
	if len(coords) == 0 {
		return orb.Bound{}, false
	}
	b = orb.Bound{Min: orb.Point(coords[0]), Max: orb.Point(coords[0])}
	for _, c := range coords[1:] {
		b = b.Extend(orb.Point(c))
	}
	return b, true
}

// Coords flattens every coordinate of g: the ring of a polygon, the position
// of a point, and recursively the members of a collection.
func Coords(g geometry.Geometry) []geometry.Coord {
	switch g := g.(type) {
	case geometry.Polygon:
		return geometry.OpenRing(g.Ring)
	case geometry.Point:
		return []geometry.Coord{g.Coord}
	case geometry.Collection:
		var out []geometry.Coord
		for _, child := range g.Geometries {
			out = append(out, Coords(child)...)
		}
		return out
	case nil:
		return nil
	default:
		return nil
	}
}

// BoundsEqual reports whether every edge of a and b differs by at most eps.
func BoundsEqual(a, b orb.Bound, eps float64) bool {
	return math.Abs(a.Min[0]-b.Min[0]) <= eps &&
		math.Abs(a.Min[1]-b.Min[1]) <= eps &&
		math.Abs(a.Max[0]-b.Max[0]) <= eps &&
		math.Abs(a.Max[1]-b.Max[1]) <= eps
}
