package geometry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Parse decodes a GeoJSON document into a Geometry. Besides bare geometries it
// accepts a Feature and a FeatureCollection holding exactly one feature, which
// is how drawing tools hand back a freshly drawn boundary. An empty document
// or JSON null decodes to a nil Geometry.
func Parse(data []byte) (Geometry, error) {
	geoms, features, err := decode(data)
	if err != nil {
		return nil, err
	}
	if features && len(geoms) != 1 {
		return nil, fmt.Errorf("%w: feature collection with %d features",
			ErrUnsupportedGeometry, len(geoms))
	}
	if len(geoms) == 0 {
		return nil, nil
	}
	return FromOrb(geoms[0])
}

// ParseLenient is Parse for stored or imported data, which may hold any
// GeoJSON geometry. Points and polygons are kept and everything else is
// dropped; a multipolygon or a feature collection keeps its usable members
// as a collection. Malformed input yields nil. reduced reports whether the
// result lost anything the document held.
func ParseLenient(data []byte) (g Geometry, reduced bool) {
	if g, err := Parse(data); err == nil {
		return g, false
	}
	geoms, _, err := decode(data)
	if err != nil {
		return nil, true
	}
	return reduce(orb.Collection(geoms)), true
}

// decode reads the orb geometries of a document. features is set for a
// FeatureCollection, whose members are returned in order.
func decode(data []byte) (geoms []orb.Geometry, features bool, err error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, false, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, false, fmt.Errorf("failed to read geojson type: %w", err)
	}

	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(trimmed)
		if err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal feature: %w", err)
		}
		return []orb.Geometry{f.Geometry}, false, nil
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(trimmed)
		if err != nil {
			return nil, true, fmt.Errorf("failed to unmarshal feature collection: %w", err)
		}
		for _, f := range fc.Features {
			geoms = append(geoms, f.Geometry)
		}
		return geoms, true, nil
	default:
		g, err := geojson.UnmarshalGeometry(trimmed)
		if err != nil {
			return nil, false, fmt.Errorf("failed to unmarshal geometry: %w", err)
		}
		return []orb.Geometry{g.Geometry()}, false, nil
	}
}

// reduce keeps the points and polygons of og. Nested collections are
// flattened; a single survivor is returned bare.
func reduce(og orb.Geometry) Geometry {
	var out []Geometry
	var walk func(orb.Geometry)
	walk = func(og orb.Geometry) {
		switch og := og.(type) {
		case orb.Point:
			out = append(out, Point{Coord: Coord(og)})
		case orb.MultiPoint:
			for _, p := range og {
				out = append(out, Point{Coord: Coord(p)})
			}
		case orb.Polygon:
			if len(og) > 0 && len(og[0]) > 0 {
				out = append(out, Polygon{Ring: coordsOf(og[0])})
			}
		case orb.MultiPolygon:
			for _, poly := range og {
				walk(poly)
			}
		case orb.Collection:
			for _, child := range og {
				walk(child)
			}
		}
	}
	walk(og)
	return simplify(out)
}

// Marshal encodes g as a GeoJSON geometry. A nil Geometry encodes as null.
func Marshal(g Geometry) ([]byte, error) {
	if g == nil {
		return []byte("null"), nil
	}
	og := ToOrb(g)
	if og == nil {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}
	data, err := json.Marshal(geojson.NewGeometry(og))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry: %w", err)
	}
	return data, nil
}

// ToOrb converts g to the equivalent orb geometry.
func ToOrb(g Geometry) orb.Geometry {
	switch g := g.(type) {
	case Polygon:
		ring := make(orb.Ring, len(g.Ring))
		for i, c := range g.Ring {
			ring[i] = orb.Point(c)
		}
		return orb.Polygon{ring}
	case Point:
		return orb.Point(g.Coord)
	case Collection:
		out := make(orb.Collection, 0, len(g.Geometries))
		for _, child := range g.Geometries {
			if og := ToOrb(child); og != nil {
				out = append(out, og)
			}
		}
		return out
	case nil:
		return nil
	default:
		return nil
	}
}

// FromOrb converts an orb geometry. MultiPoint is read as a collection of
// points and a MultiPolygon with a single member as that polygon; inner rings
// are dropped.
func FromOrb(og orb.Geometry) (Geometry, error) {
	switch og := og.(type) {
	case nil:
		return nil, nil
	case orb.Point:
		return Point{Coord: Coord(og)}, nil
	case orb.Polygon:
		if len(og) == 0 {
			return nil, fmt.Errorf("%w: polygon without rings", ErrUnsupportedGeometry)
		}
		return Polygon{Ring: coordsOf(og[0])}, nil
	case orb.MultiPolygon:
		if len(og) != 1 {
			return nil, fmt.Errorf("%w: multipolygon with %d members", ErrUnsupportedGeometry, len(og))
		}
		return FromOrb(og[0])
	case orb.MultiPoint:
		out := make([]Geometry, len(og))
		for i, p := range og {
			out[i] = Point{Coord: Coord(p)}
		}
		return simplify(out), nil
	case orb.Collection:
		out := make([]Geometry, 0, len(og))
		for _, child := range og {
			g, err := FromOrb(child)
			if err != nil {
				return nil, err
			}
			if g != nil {
				out = append(out, g)
			}
		}
		return Collection{Geometries: out}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, og.GeoJSONType())
	}
}

func coordsOf(ring orb.Ring) []Coord {
	out := make([]Coord, len(ring))
	for i, p := range ring {
		out[i] = Coord(p)
	}
	return out
}
