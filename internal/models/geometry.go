package models

import (
	"database/sql/driver"
	"fmt"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// GeoJSON is a PostGIS geometry column holding a parcel boundary or a variety
// geometry. It is read with ST_AsGeoJSON and written with ST_GeomFromGeoJSON.
// The zero value (nil Geometry) maps to SQL NULL and JSON null.
type GeoJSON struct {
	Geometry geometry.Geometry
	degraded bool
}

// NewGeoJSON wraps g.
func NewGeoJSON(g geometry.Geometry) GeoJSON {
	return GeoJSON{Geometry: g}
}

// IsNull reports whether no geometry is held.
func (g GeoJSON) IsNull() bool {
	return g.Geometry == nil
}

// Degraded reports whether the stored geometry held parts that could not be
// kept, such as line strings, or did not parse at all.
func (g GeoJSON) Degraded() bool {
	return g.degraded
}

// Scan implements sql.Scanner interface for reading geometry from database.
// PostGIS returns the output of ST_AsGeoJSON as text. The column accepts any
// geometry; whatever the editor cannot model is dropped and Degraded is set.
func (g *GeoJSON) Scan(value interface{}) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		g.Geometry, g.degraded = nil, false
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("failed to scan GeoJSON: expected []byte or string, got %T", value)
	}

	g.Geometry, g.degraded = geometry.ParseLenient(data)
	return nil
}

// DecodeLenient reads a geometry from stored or imported JSON the way Scan
// does.
func DecodeLenient(data []byte) GeoJSON {
	var g GeoJSON
	g.Geometry, g.degraded = geometry.ParseLenient(data)
	return g
}

// Value implements driver.Valuer interface for writing geometry to database.
// Returns a GeoJSON string to be used with ST_GeomFromGeoJSON in raw SQL queries.
func (g GeoJSON) Value() (driver.Value, error) {
	if g.Geometry == nil {
		return nil, nil
	}
	data, err := geometry.Marshal(g.Geometry)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal geometry to GeoJSON: %w", err)
	}
	return string(data), nil
}

// MarshalJSON implements json.Marshaler for API responses.
func (g GeoJSON) MarshalJSON() ([]byte, error) {
	return geometry.Marshal(g.Geometry)
}

// UnmarshalJSON implements json.Unmarshaler for request bodies. Features and
// single-feature collections are unwrapped to their geometry.
func (g *GeoJSON) UnmarshalJSON(data []byte) error {
	parsed, err := geometry.Parse(data)
	if err != nil {
		return err
	}
	g.Geometry, g.degraded = parsed, false
	return nil
}
