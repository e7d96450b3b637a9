package geometry

import "fmt"

// PointRef is a tree position together with its index inside the variety
// geometry (0 for a bare Point, the collection index otherwise).
type PointRef struct {
	Index int
	Coord Coord
}

// Points lists the tree positions of a variety geometry in collection order.
// Polygon entries are skipped.
func Points(g Geometry) []PointRef {
	switch g := g.(type) {
	case nil, Polygon:
		return nil
	case Point:
		return []PointRef{{Index: 0, Coord: g.Coord}}
	case Collection:
		refs := make([]PointRef, 0, len(g.Geometries))
		for i, child := range g.Geometries {
			if p, ok := child.(Point); ok {
				refs = append(refs, PointRef{Index: i, Coord: p.Coord})
			}
		}
		return refs
	default:
		return nil
	}
}

// TreeCount derives the number of trees of a variety: 1 for a bare Point, the
// number of Point entries of a Collection, 0 otherwise.
func TreeCount(g Geometry) int {
	switch g := g.(type) {
	case Point:
		return 1
	case Collection:
		n := 0
		for _, child := range g.Geometries {
			if _, ok := child.(Point); ok {
				n++
			}
		}
		return n
	case Polygon, nil:
		return 0
	default:
		return 0
	}
}

// AddPoint folds a new tree position into a variety geometry:
// nil becomes a Point, a Point or zone Polygon becomes a two-element
// Collection, and a Collection gets the point appended.
func AddPoint(g Geometry, c Coord) Geometry {
	pt := Point{Coord: c}
	switch g := g.(type) {
	case nil:
		return pt
	case Point:
		return Collection{Geometries: []Geometry{g, pt}}
	case Polygon:
		return Collection{Geometries: []Geometry{Clone(g), pt}}
	case Collection:
		out := make([]Geometry, 0, len(g.Geometries)+1)
		for _, child := range g.Geometries {
			out = append(out, Clone(child))
		}
		return Collection{Geometries: append(out, pt)}
	default:
		return pt
	}
}

// RemovePoint removes the point at index and simplifies the result: an empty
// geometry becomes nil and a lone remaining geometry is unwrapped.
func RemovePoint(g Geometry, index int) (Geometry, error) {
	switch g := g.(type) {
	case Point:
		if index != 0 {
			return g, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		return nil, nil
	case Collection:
		if index < 0 || index >= len(g.Geometries) {
			return g, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		if _, ok := g.Geometries[index].(Point); !ok {
			return g, fmt.Errorf("%w: %d", ErrNotPoint, index)
		}
		rest := make([]Geometry, 0, len(g.Geometries)-1)
		for i, child := range g.Geometries {
			if i != index {
				rest = append(rest, Clone(child))
			}
		}
		return simplify(rest), nil
	case Polygon, nil:
		return g, fmt.Errorf("%w: %d", ErrNotPoint, index)
	default:
		return g, fmt.Errorf("%w: %d", ErrNotPoint, index)
	}
}

// ReplacePoint moves the point at index to c, keeping its position in the
// collection.
func ReplacePoint(g Geometry, index int, c Coord) (Geometry, error) {
	switch g := g.(type) {
	case Point:
		if index != 0 {
			return g, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		return Point{Coord: c}, nil
	case Collection:
		if index < 0 || index >= len(g.Geometries) {
			return g, fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
		}
		if _, ok := g.Geometries[index].(Point); !ok {
			return g, fmt.Errorf("%w: %d", ErrNotPoint, index)
		}
		out := Clone(g).(Collection)
		out.Geometries[index] = Point{Coord: c}
		return out, nil
	case Polygon, nil:
		return g, fmt.Errorf("%w: %d", ErrNotPoint, index)
	default:
		return g, fmt.Errorf("%w: %d", ErrNotPoint, index)
	}
}

func simplify(geoms []Geometry) Geometry {
	switch len(geoms) {
	case 0:
		return nil
	case 1:
		return geoms[0]
	default:
		return Collection{Geometries: geoms}
	}
}
