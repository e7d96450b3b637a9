package editor

import "github.com/stwalsh4118/orchard/internal/geometry"

// fakeSurface records the scene so tests can inspect what is on the map.
type fakeSurface struct {
	polygons      map[int]*fakePolygon
	markers       map[int]*fakeMarker
	nextID        int
	markersAdded  int
	polygonsAdded int
}

type fakePolygon struct {
	surface *fakeSurface
	id      int
	ring    []geometry.Coord
	style   PolygonStyle
	sets    int
}

type fakeMarker struct {
	surface *fakeSurface
	id      int
	pos     geometry.Coord
	spec    MarkerSpec
	moves   int
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{
		polygons: map[int]*fakePolygon{},
		markers:  map[int]*fakeMarker{},
	}
}

func (s *fakeSurface) AddPolygon(ring []geometry.Coord, style PolygonStyle) PolygonHandle {
	s.nextID++
	s.polygonsAdded++
	p := &fakePolygon{surface: s, id: s.nextID, ring: append([]geometry.Coord{}, ring...), style: style}
	s.polygons[p.id] = p
	return p
}

func (s *fakeSurface) AddMarker(pos geometry.Coord, spec MarkerSpec) MarkerHandle {
	s.nextID++
	s.markersAdded++
	m := &fakeMarker{surface: s, id: s.nextID, pos: pos, spec: spec}
	s.markers[m.id] = m
	return m
}

func (s *fakeSurface) byRole(role MarkerRole) []*fakeMarker {
	var out []*fakeMarker
	for _, m := range s.markers {
		if m.spec.Role == role {
			out = append(out, m)
		}
	}
	return out
}

func (s *fakeSurface) find(role MarkerRole, variety, index int) *fakeMarker {
	for _, m := range s.markers {
		if m.spec.Role == role && m.spec.Variety == variety && m.spec.Index == index {
			return m
		}
	}
	return nil
}

func (s *fakeSurface) outline() *fakePolygon {
	for _, p := range s.polygons {
		return p
	}
	return nil
}

func (p *fakePolygon) SetRing(ring []geometry.Coord) {
	p.ring = append([]geometry.Coord{}, ring...)
	p.sets++
}

func (p *fakePolygon) Remove() { delete(p.surface.polygons, p.id) }

func (m *fakeMarker) SetPosition(pos geometry.Coord) {
	m.pos = pos
	m.moves++
}

func (m *fakeMarker) Remove() { delete(m.surface.markers, m.id) }

type fakeOwner struct {
	boundaries []BoundaryCommit
	varieties  []VarietyCommit
}

func (o *fakeOwner) BoundaryCommitted(c BoundaryCommit) { o.boundaries = append(o.boundaries, c) }
func (o *fakeOwner) VarietyCommitted(c VarietyCommit)   { o.varieties = append(o.varieties, c) }

type fakeFeedback struct {
	warnings []string
	errors   []string
}

func (f *fakeFeedback) Warn(msg string)  { f.warnings = append(f.warnings, msg) }
func (f *fakeFeedback) Error(msg string) { f.errors = append(f.errors, msg) }
