package editor

import (
	"fmt"

	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

// boundaryScene holds the handles drawn for a boundary. midpoints[i] sits on
// the edge from vertex i to vertex i+1 (wrapping).
type boundaryScene struct {
	outline   PolygonHandle
	vertices  []MarkerHandle
	midpoints []MarkerHandle
}

func (s *boundaryScene) removeMarkers() {
	for _, m := range s.vertices {
		m.Remove()
	}
	for _, m := range s.midpoints {
		m.Remove()
	}
	s.vertices = nil
	s.midpoints = nil
}

// BoundaryEditor edits the vertices of a parcel boundary. It is either
// viewing (outline only) or editing (vertex and midpoint markers live).
type BoundaryEditor struct {
	surface  MapSurface
	owner    Owner
	feedback Feedback

	committed []geometry.Coord
	ring      []geometry.Coord
	editing   bool
	scene     boundaryScene
}

// NewBoundaryEditor creates a viewing editor with no boundary loaded.
func NewBoundaryEditor(surface MapSurface, owner Owner, feedback Feedback) *BoundaryEditor {
	return &BoundaryEditor{
		surface:  surface,
		owner:    owner,
		feedback: feedback,
	}
}

// Load replaces the committed boundary and redraws it in the viewing state.
// A geometry that is not polygon-shaped leaves nothing to edit.
func (e *BoundaryEditor) Load(boundary geometry.Geometry) {
	e.Exit()
	e.committed = geometry.ExtractRing(boundary)
	e.ring = cloneRing(e.committed)
	e.drawOutline(StyleBoundary)
}

// Editing reports whether vertex markers are live.
func (e *BoundaryEditor) Editing() bool {
	return e.editing
}

// Ring returns a copy of the open ring currently shown.
func (e *BoundaryEditor) Ring() []geometry.Coord {
	return cloneRing(e.ring)
}

// Committed returns a copy of the last committed open ring.
func (e *BoundaryEditor) Committed() []geometry.Coord {
	return cloneRing(e.committed)
}

// Begin enters the editing state and materializes one marker per vertex and
// one per edge midpoint.
func (e *BoundaryEditor) Begin() error {
	if len(e.committed) < geometry.MinRingVertices {
		return ErrNoBoundary
	}
	if e.editing {
		return nil
	}
	e.editing = true
	e.ring = cloneRing(e.committed)
	e.drawOutline(StyleBoundaryEditing)
	e.rebuildMarkers()
	return nil
}

// Exit leaves the editing state, dropping every marker. A drag in progress is
// discarded and the committed ring is shown again.
func (e *BoundaryEditor) Exit() {
	e.scene.removeMarkers()
	wasEditing := e.editing
	e.editing = false
	e.ring = cloneRing(e.committed)
	if wasEditing {
		e.drawOutline(StyleBoundary)
	}
}

// DragVertex moves vertex i to pos for one drag frame. Only the outline and
// the two adjacent midpoint markers are touched.
func (e *BoundaryEditor) DragVertex(i int, pos geometry.Coord) error {
	if err := e.checkVertex(i); err != nil {
		return err
	}

	n := len(e.ring)
	e.ring[i] = pos
	e.scene.outline.SetRing(cloneRing(e.ring))
	e.scene.vertices[i].SetPosition(pos)

	prev := (i - 1 + n) % n
	e.scene.midpoints[prev].SetPosition(geometry.Midpoint(e.ring[prev], e.ring[i]))
	e.scene.midpoints[i].SetPosition(geometry.Midpoint(e.ring[i], e.ring[(i+1)%n]))
	return nil
}

// EndVertexDrag commits the ring as left by the last DragVertex.
func (e *BoundaryEditor) EndVertexDrag(i int) error {
	if err := e.checkVertex(i); err != nil {
		return err
	}
	e.commit()
	return nil
}

// DeleteVertex removes vertex i. It refuses, with a warning to the user, when
// the ring is already a triangle.
func (e *BoundaryEditor) DeleteVertex(i int) error {
	if err := e.checkVertex(i); err != nil {
		return err
	}
	if len(e.ring) <= geometry.MinRingVertices {
		e.feedback.Warn(ErrMinVertices.Error())
		return ErrMinVertices
	}

	e.ring = append(e.ring[:i:i], e.ring[i+1:]...)
	e.commit()
	e.scene.outline.SetRing(cloneRing(e.ring))
	e.rebuildMarkers()
	return nil
}

// InsertAtMidpoint adds a vertex in the middle of edge i, right after
// vertex i in ring order.
func (e *BoundaryEditor) InsertAtMidpoint(edge int) error {
	if !e.editing {
		return ErrNotEditing
	}
	n := len(e.ring)
	if edge < 0 || edge >= n {
		return fmt.Errorf("%w: edge %d of %d", ErrIndexOutOfRange, edge, n)
	}

	mid := geometry.Midpoint(e.ring[edge], e.ring[(edge+1)%n])
	ring := make([]geometry.Coord, 0, n+1)
	ring = append(ring, e.ring[:edge+1]...)
	ring = append(ring, mid)
	ring = append(ring, e.ring[edge+1:]...)
	e.ring = ring

	e.commit()
	e.scene.outline.SetRing(cloneRing(e.ring))
	e.rebuildMarkers()
	return nil
}

func (e *BoundaryEditor) checkVertex(i int) error {
	if !e.editing {
		return ErrNotEditing
	}
	if i < 0 || i >= len(e.ring) {
		return fmt.Errorf("%w: vertex %d of %d", ErrIndexOutOfRange, i, len(e.ring))
	}
	return nil
}

func (e *BoundaryEditor) commit() {
	e.committed = cloneRing(e.ring)
	e.owner.BoundaryCommitted(BoundaryCommit{
		Ring:         geometry.CloseRing(e.committed),
		AreaHectares: spatial.AreaHectares(e.committed),
	})
}

func (e *BoundaryEditor) drawOutline(style PolygonStyle) {
	if e.scene.outline != nil {
		e.scene.outline.Remove()
		e.scene.outline = nil
	}
	if len(e.ring) == 0 {
		return
	}
	e.scene.outline = e.surface.AddPolygon(cloneRing(e.ring), style)
}

func (e *BoundaryEditor) rebuildMarkers() {
	e.scene.removeMarkers()
	n := len(e.ring)
	e.scene.vertices = make([]MarkerHandle, n)
	e.scene.midpoints = make([]MarkerHandle, n)
	for i, c := range e.ring {
		e.scene.vertices[i] = e.surface.AddMarker(c, MarkerSpec{
			Role:      RoleVertex,
			Index:     i,
			Draggable: true,
			Deletable: true,
		})
	}
	for i := range e.ring {
		e.scene.midpoints[i] = e.surface.AddMarker(
			geometry.Midpoint(e.ring[i], e.ring[(i+1)%n]),
			MarkerSpec{Role: RoleMidpoint, Index: i},
		)
	}
}

func cloneRing(ring []geometry.Coord) []geometry.Coord {
	if ring == nil {
		return nil
	}
	return append([]geometry.Coord{}, ring...)
}
