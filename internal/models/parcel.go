package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// Parcel is an orchard parcel: a named boundary polygon with the varieties
// planted inside it. Area (hectares) and TreesCount are derived from the
// geometries and never taken from user input.
type Parcel struct {
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Name       string    `json:"name"`
	Boundary   GeoJSON   `json:"geojson"`
	Varieties  []Variety `json:"varieties"`
	Area       float64   `json:"area"`
	ID         int64     `json:"id"`
	TreesCount int       `json:"trees_count"`
}

// Variety is a cultivar group within a parcel. Position is its ordinal among
// the parcel's varieties and selects its color and symbol.
// Geometry holds a Point, a GeometryCollection of points (and zone polygons)
// or nothing when no tree has been placed yet.
type Variety struct {
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	PlantingDate *string   `json:"planting_date,omitempty"`
	Cultivar     string    `json:"cultivar"`
	Location     string    `json:"location"`
	Geometry     GeoJSON   `json:"geojson"`
	Area         float64   `json:"area"`
	ID           int64     `json:"id"`
	ParcelID     int64     `json:"parcel_id"`
	Position     int       `json:"position"`
	TreeCount    int       `json:"tree_count"`
}

// Ring returns the open boundary ring, empty when the boundary is missing or
// not a polygon.
func (p *Parcel) Ring() []geometry.Coord {
	return geometry.ExtractRing(p.Boundary.Geometry)
}

// RecountTrees derives every variety's tree count from its geometry and the
// parcel total from the varieties.
func (p *Parcel) RecountTrees() {
	total := 0
	for i := range p.Varieties {
		p.Varieties[i].TreeCount = geometry.TreeCount(p.Varieties[i].Geometry.Geometry)
		total += p.Varieties[i].TreeCount
	}
	p.TreesCount = total
}

// Degraded reports whether the boundary or any variety geometry lost parts
// when it was read.
func (p *Parcel) Degraded() bool {
	if p.Boundary.Degraded() {
		return true
	}
	for _, v := range p.Varieties {
		if v.Geometry.Degraded() {
			return true
		}
	}
	return false
}

// DecodeParcel reads a parcel document exported from elsewhere. Unlike
// request bodies, geometries that cannot be modelled are reduced instead of
// rejected; check Degraded.
func DecodeParcel(data []byte) (*Parcel, error) {
	var doc struct {
		Parcel
		Boundary  json.RawMessage `json:"geojson"`
		Varieties []struct {
			Variety
			Geometry json.RawMessage `json:"geojson"`
		} `json:"varieties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode parcel: %w", err)
	}

	parcel := doc.Parcel
	parcel.Boundary = DecodeLenient(doc.Boundary)
	parcel.Varieties = make([]Variety, len(doc.Varieties))
	for i, v := range doc.Varieties {
		parcel.Varieties[i] = v.Variety
		parcel.Varieties[i].Geometry = DecodeLenient(v.Geometry)
	}
	return &parcel, nil
}
