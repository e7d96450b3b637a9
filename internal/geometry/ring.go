package geometry

// MinRingVertices is the smallest number of distinct vertices a polygon ring
// can have.
const MinRingVertices = 3

// ExtractRing returns the open outer ring of a polygon-shaped geometry, without
// the duplicated closing coordinate. It returns an empty slice when g is not a
// Polygon or when the ring has fewer than MinRingVertices vertices; callers
// treat an empty ring as "nothing to edit".
func ExtractRing(g Geometry) []Coord {
	switch g := g.(type) {
	case Polygon:
		open := OpenRing(g.Ring)
		if len(open) < MinRingVertices {
			return []Coord{}
		}
		return open
	case Point, Collection, nil:
		return []Coord{}
	default:
		return []Coord{}
	}
}

// OpenRing returns a copy of ring with a trailing coordinate equal to the
// first one removed.
func OpenRing(ring []Coord) []Coord {
	n := len(ring)
	if n > 1 && ring[0] == ring[n-1] {
		n--
	}
	out := make([]Coord, n)
	copy(out, ring[:n])
	return out
}

// CloseRing returns a copy of the open ring with its first coordinate appended.
func CloseRing(open []Coord) []Coord {
	if len(open) == 0 {
		return []Coord{}
	}
	out := make([]Coord, 0, len(open)+1)
	out = append(out, open...)
	return append(out, open[0])
}

// Midpoint returns the planar midpoint of the edge a-b.
func Midpoint(a, b Coord) Coord {
	return Coord{(a[0] + b[0]) / 2, (a[1] + b[1]) / 2}
}
