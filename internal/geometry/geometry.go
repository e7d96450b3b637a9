// Package geometry models the parcel and variety geometries edited on the map
// and rendered by the exporter.
//
// Geometry is a sealed sum type: the only implementations are Polygon, Point
// and Collection, and consumers are expected to switch over all three. A nil
// Geometry means "no geometry" (a variety with no trees placed yet).
package geometry

import "errors"

// Geometry errors
var (
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
	ErrIndexOutOfRange     = errors.New("geometry index out of range")
	ErrNotPoint            = errors.New("geometry at index is not a point")
)

// Coord is a [longitude, latitude] pair in WGS84, matching GeoJSON order.
type Coord [2]float64

// Lng returns the longitude.
func (c Coord) Lng() float64 { return c[0] }

// Lat returns the latitude.
func (c Coord) Lat() float64 { return c[1] }

// Kind identifies the variant held by a Geometry.
type Kind int

const (
	KindPolygon Kind = iota + 1
	KindPoint
	KindCollection
)

// String returns the GeoJSON type name of the kind.
func (k Kind) String() string {
	switch k {
	case KindPolygon:
		return "Polygon"
	case KindPoint:
		return "Point"
	case KindCollection:
		return "GeometryCollection"
	default:
		return "Unknown"
	}
}

// Geometry is implemented by Polygon, Point and Collection only.
type Geometry interface {
	Kind() Kind
	sealed()
}

// Polygon is a single-ring polygon. Ring is kept as received; in source form
// it is closed (first coordinate repeated at the end). Use ExtractRing to get
// the open ring the editor works on.
type Polygon struct {
	Ring []Coord
}

// Point is a single tree position.
type Point struct {
	Coord Coord
}

// Collection holds the geometries of one variety: Points are trees, Polygons
// are zone annotations.
type Collection struct {
	Geometries []Geometry
}

func (Polygon) Kind() Kind    { return KindPolygon }
func (Point) Kind() Kind      { return KindPoint }
func (Collection) Kind() Kind { return KindCollection }

func (Polygon) sealed()    {}
func (Point) sealed()      {}
func (Collection) sealed() {}

// Clone returns a deep copy of g. Clone(nil) is nil.
func Clone(g Geometry) Geometry {
	switch g := g.(type) {
	case nil:
		return nil
	case Polygon:
		return Polygon{Ring: append([]Coord(nil), g.Ring...)}
	case Point:
		return g
	case Collection:
		out := make([]Geometry, len(g.Geometries))
		for i, child := range g.Geometries {
			out[i] = Clone(child)
		}
		return Collection{Geometries: out}
	default:
		return nil
	}
}
