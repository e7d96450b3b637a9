package session

import (
	"github.com/paulmach/orb"

	"github.com/stwalsh4118/orchard/internal/editor"
	"github.com/stwalsh4118/orchard/internal/geometry"
)

// remoteSurface is an editor.MapSurface whose map lives in the client.
// Every handle operation is queued as an Op until the session flushes it.
// It also frames the client map and shows notices.
type remoteSurface struct {
	nextID int
	queued []Op
}

func (s *remoteSurface) push(op Op) {
	s.queued = append(s.queued, op)
}

// drain returns the queued ops and empties the queue.
func (s *remoteSurface) drain() []Op {
	ops := s.queued
	s.queued = nil
	return ops
}

func (s *remoteSurface) AddPolygon(ring []geometry.Coord, style editor.PolygonStyle) editor.PolygonHandle {
	s.nextID++
	s.push(Op{Type: OpAddPolygon, ID: s.nextID, Ring: copyRing(ring), Style: styleName(style)})
	return &remoteHandle{surface: s, id: s.nextID}
}

func (s *remoteSurface) AddMarker(pos geometry.Coord, spec editor.MarkerSpec) editor.MarkerHandle {
	s.nextID++
	op := Op{
		Type:      OpAddMarker,
		ID:        s.nextID,
		Position:  &pos,
		Role:      spec.Role.String(),
		Index:     intPtr(spec.Index),
		Draggable: spec.Draggable,
		Deletable: spec.Deletable,
	}
	if spec.Role == editor.RoleTree {
		op.Variety = intPtr(spec.Variety)
	}
	s.push(op)
	return &remoteHandle{surface: s, id: s.nextID}
}

// FitBounds implements viewport.Fitter.
func (s *remoteSurface) FitBounds(b orb.Bound, padding int, maxZoom float64) {
	bounds := [4]float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	s.push(Op{Type: OpFitBounds, Bounds: &bounds, Padding: padding, MaxZoom: maxZoom})
}

// Warn implements editor.Feedback.
func (s *remoteSurface) Warn(msg string) {
	s.push(Op{Type: OpNotice, Level: LevelWarning, Message: msg})
}

// Error implements editor.Feedback.
func (s *remoteSurface) Error(msg string) {
	s.push(Op{Type: OpNotice, Level: LevelError, Message: msg})
}

// remoteHandle is both a polygon and a marker handle; the client knows which
// one an id refers to.
type remoteHandle struct {
	surface *remoteSurface
	id      int
	removed bool
}

func (h *remoteHandle) SetRing(ring []geometry.Coord) {
	if h.removed {
		return
	}
	h.surface.push(Op{Type: OpSetRing, ID: h.id, Ring: copyRing(ring)})
}

func (h *remoteHandle) SetPosition(pos geometry.Coord) {
	if h.removed {
		return
	}
	h.surface.push(Op{Type: OpMoveMarker, ID: h.id, Position: &pos})
}

func (h *remoteHandle) Remove() {
	if h.removed {
		return
	}
	h.removed = true
	h.surface.push(Op{Type: OpRemove, ID: h.id})
}

func styleName(s editor.PolygonStyle) string {
	if s == editor.StyleBoundaryEditing {
		return "editing"
	}
	return "boundary"
}

func copyRing(ring []geometry.Coord) []geometry.Coord {
	return append([]geometry.Coord{}, ring...)
}
