package editor

import (
	"fmt"

	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/spatial"
)

// Mode is the point editing sub-mode of a variety.
type Mode int

const (
	ModeNone Mode = iota
	ModeDrawing
	ModeDeleting
)

// String returns the wire name of the mode.
func (m Mode) String() string {
	switch m {
	case ModeDrawing:
		return "draw"
	case ModeDeleting:
		return "delete"
	default:
		return "none"
	}
}

// ParseMode is the inverse of Mode.String. Unknown names map to ModeNone.
func ParseMode(s string) Mode {
	switch s {
	case "draw":
		return ModeDrawing
	case "delete":
		return ModeDeleting
	default:
		return ModeNone
	}
}

// Context is the editing mode of the whole point editor: at most one variety
// is drawing or deleting at a time.
type Context struct {
	Mode    Mode
	Variety int
}

// Active reports whether variety v is in mode m.
func (c Context) Active(v int, m Mode) bool {
	return c.Mode == m && c.Mode != ModeNone && c.Variety == v
}

// gesture tracks one press on a tree marker until its release.
type gesture struct {
	variety int
	index   int
	origin  geometry.Coord
	last    geometry.Coord
	moved   bool
}

// treeMarker is a tree marker handle keyed by its geometry index.
type treeMarker struct {
	index  int
	handle MarkerHandle
}

// PointEditor places, moves and removes the tree points of a parcel's
// varieties. Every point must stay inside the parcel boundary.
type PointEditor struct {
	surface  MapSurface
	owner    Owner
	feedback Feedback

	boundary  []geometry.Coord
	varieties []geometry.Geometry
	markers   [][]treeMarker
	ctx       Context
	press     *gesture
}

// NewPointEditor creates an editor with no parcel loaded.
func NewPointEditor(surface MapSurface, owner Owner, feedback Feedback) *PointEditor {
	return &PointEditor{
		surface:  surface,
		owner:    owner,
		feedback: feedback,
	}
}

// Load replaces the parcel boundary and the variety geometries (indexed by
// variety ordinal) and redraws every tree marker. The mode is reset.
func (e *PointEditor) Load(boundary geometry.Geometry, varieties []geometry.Geometry) {
	for v := range e.markers {
		e.clearMarkers(v)
	}
	e.boundary = geometry.ExtractRing(boundary)
	e.varieties = make([]geometry.Geometry, len(varieties))
	for i, g := range varieties {
		e.varieties[i] = geometry.Clone(g)
	}
	e.markers = make([][]treeMarker, len(varieties))
	e.ctx = Context{}
	e.press = nil
	for v := range e.varieties {
		e.drawMarkers(v)
	}
}

// SetBoundary replaces the boundary used for containment checks, e.g. after
// the boundary editor committed a change.
func (e *PointEditor) SetBoundary(boundary geometry.Geometry) {
	e.boundary = geometry.ExtractRing(boundary)
}

// Context returns the current editing mode.
func (e *PointEditor) Context() Context {
	return e.ctx
}

// Geometry returns a copy of the geometry of variety v.
func (e *PointEditor) Geometry(v int) (geometry.Geometry, error) {
	if err := e.checkVariety(v); err != nil {
		return nil, err
	}
	return geometry.Clone(e.varieties[v]), nil
}

// SetContext switches the editing mode. Selecting a mode for one variety
// ends the mode of any other variety.
func (e *PointEditor) SetContext(ctx Context) error {
	if ctx.Mode != ModeNone {
		if err := e.checkVariety(ctx.Variety); err != nil {
			return err
		}
	}
	prev := e.ctx
	e.ctx = ctx
	e.press = nil

	// Deletability is baked into the markers of the affected varieties.
	if prev.Mode == ModeDeleting {
		e.drawMarkers(prev.Variety)
	}
	if ctx.Mode == ModeDeleting && !(prev.Mode == ModeDeleting && prev.Variety == ctx.Variety) {
		e.drawMarkers(ctx.Variety)
	}
	return nil
}

// Toggle selects mode m for variety v, or clears it when v is already in m.
func (e *PointEditor) Toggle(v int, m Mode) error {
	if e.ctx.Active(v, m) {
		return e.SetContext(Context{})
	}
	return e.SetContext(Context{Mode: m, Variety: v})
}

// MapClick handles a click on the map. It places a tree for the variety in
// drawing mode and is ignored in any other mode.
func (e *PointEditor) MapClick(pos geometry.Coord) error {
	if e.ctx.Mode != ModeDrawing {
		return nil
	}
	if !spatial.Contains(e.boundary, pos) {
		e.feedback.Error(ErrOutsideParcel.Error())
		return ErrOutsideParcel
	}

	v := e.ctx.Variety
	e.varieties[v] = geometry.AddPoint(e.varieties[v], pos)
	e.commit(v)
	e.drawMarkers(v)
	return nil
}

// MarkerDown starts a gesture on the tree marker at geometry index i of
// variety v.
func (e *PointEditor) MarkerDown(v, i int) error {
	if _, err := e.marker(v, i); err != nil {
		return err
	}
	origin, _ := e.position(v, i)
	e.press = &gesture{variety: v, index: i, origin: origin, last: origin}
	return nil
}

// MarkerMove follows a drag frame. Only the marker handle moves; the geometry
// is updated on release.
func (e *PointEditor) MarkerMove(v, i int, pos geometry.Coord) error {
	if e.press == nil || e.press.variety != v || e.press.index != i {
		return nil
	}
	h, err := e.marker(v, i)
	if err != nil {
		return err
	}
	e.press.last = pos
	e.press.moved = e.press.moved || pos != e.press.origin
	h.SetPosition(pos)
	return nil
}

// MarkerUp ends the gesture. A marker that moved is dropped at its new
// position (and never deleted); one that did not move is deleted when its
// variety is in deleting mode.
func (e *PointEditor) MarkerUp(v, i int) error {
	press := e.press
	e.press = nil
	if press == nil || press.variety != v || press.index != i {
		return nil
	}

	if press.moved {
		return e.drop(v, i, press.origin, press.last)
	}
	if e.ctx.Active(v, ModeDeleting) {
		return e.remove(v, i)
	}
	return nil
}

func (e *PointEditor) drop(v, i int, origin, pos geometry.Coord) error {
	h, err := e.marker(v, i)
	if err != nil {
		return err
	}
	if !spatial.Contains(e.boundary, pos) {
		h.SetPosition(origin)
		e.feedback.Error(ErrOutsideParcel.Error())
		return ErrOutsideParcel
	}

	g, err := geometry.ReplacePoint(e.varieties[v], i, pos)
	if err != nil {
		h.SetPosition(origin)
		return fmt.Errorf("failed to move tree: %w", err)
	}
	e.varieties[v] = g
	e.commit(v)
	return nil
}

func (e *PointEditor) remove(v, i int) error {
	g, err := geometry.RemovePoint(e.varieties[v], i)
	if err != nil {
		return fmt.Errorf("failed to remove tree: %w", err)
	}
	e.varieties[v] = g
	e.commit(v)
	e.drawMarkers(v)
	return nil
}

func (e *PointEditor) commit(v int) {
	e.owner.VarietyCommitted(VarietyCommit{
		Variety:   v,
		Geometry:  geometry.Clone(e.varieties[v]),
		TreeCount: geometry.TreeCount(e.varieties[v]),
	})
}

func (e *PointEditor) drawMarkers(v int) {
	if v < 0 || v >= len(e.varieties) {
		return
	}
	e.clearMarkers(v)
	deletable := e.ctx.Active(v, ModeDeleting)
	refs := geometry.Points(e.varieties[v])
	markers := make([]treeMarker, 0, len(refs))
	for _, ref := range refs {
		markers = append(markers, treeMarker{
			index: ref.Index,
			handle: e.surface.AddMarker(ref.Coord, MarkerSpec{
				Role:      RoleTree,
				Index:     ref.Index,
				Variety:   v,
				Draggable: true,
				Deletable: deletable,
			}),
		})
	}
	e.markers[v] = markers
}

func (e *PointEditor) clearMarkers(v int) {
	for _, m := range e.markers[v] {
		m.handle.Remove()
	}
	e.markers[v] = nil
}

func (e *PointEditor) marker(v, i int) (MarkerHandle, error) {
	if err := e.checkVariety(v); err != nil {
		return nil, err
	}
	for _, m := range e.markers[v] {
		if m.index == i {
			return m.handle, nil
		}
	}
	return nil, fmt.Errorf("%w: tree %d of variety %d", ErrIndexOutOfRange, i, v)
}

func (e *PointEditor) position(v, i int) (geometry.Coord, bool) {
	for _, ref := range geometry.Points(e.varieties[v]) {
		if ref.Index == i {
			return ref.Coord, true
		}
	}
	return geometry.Coord{}, false
}

func (e *PointEditor) checkVariety(v int) error {
	if v < 0 || v >= len(e.varieties) {
		return fmt.Errorf("%w: %d", ErrNoVariety, v)
	}
	return nil
}
