// Package editor implements direct-manipulation editing of a parcel boundary
// and of the tree points of its varieties.
//
// Editors draw onto a retained MapSurface and keep the handles of everything
// they create. Cheap events (a drag frame) mutate those handles in place;
// structural changes (a vertex or point added or removed) tear the affected
// handles down and recreate them. All methods are meant to be called from a
// single goroutine, the one delivering the user's gestures.
package editor

import (
	"errors"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// Editing errors. They are user-facing validation failures; the committed
// geometry is left untouched when one is returned.
var (
	ErrOutsideParcel   = errors.New("point is outside the parcel boundary")
	ErrMinVertices     = errors.New("a parcel boundary needs at least 3 vertices")
	ErrNotEditing      = errors.New("boundary is not being edited")
	ErrNoBoundary      = errors.New("parcel has no editable boundary")
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrNoVariety       = errors.New("variety does not exist")
)

// PolygonStyle selects how an outline is drawn.
type PolygonStyle int

const (
	StyleBoundary PolygonStyle = iota
	StyleBoundaryEditing
)

// MarkerRole tells the surface what a marker stands for, which drives its
// look and the gestures it reports back.
type MarkerRole int

const (
	RoleVertex MarkerRole = iota
	RoleMidpoint
	RoleTree
)

// String returns the wire name of the role.
func (r MarkerRole) String() string {
	switch r {
	case RoleVertex:
		return "vertex"
	case RoleMidpoint:
		return "midpoint"
	case RoleTree:
		return "tree"
	default:
		return "unknown"
	}
}

// MarkerSpec describes a marker to create.
type MarkerSpec struct {
	Role MarkerRole
	// Index is the ring index for vertices, the edge index for midpoints and
	// the geometry index for trees.
	Index int
	// Variety is the variety ordinal for tree markers.
	Variety   int
	Draggable bool
	// Deletable markers remove themselves on a click.
	Deletable bool
}

// MapSurface is the base map the editors draw onto.
type MapSurface interface {
	AddPolygon(ring []geometry.Coord, style PolygonStyle) PolygonHandle
	AddMarker(pos geometry.Coord, spec MarkerSpec) MarkerHandle
}

// PolygonHandle is an outline previously added to a MapSurface.
type PolygonHandle interface {
	SetRing(ring []geometry.Coord)
	Remove()
}

// MarkerHandle is a marker previously added to a MapSurface.
type MarkerHandle interface {
	SetPosition(pos geometry.Coord)
	Remove()
}

// Feedback shows messages to the user.
type Feedback interface {
	Warn(msg string)
	Error(msg string)
}

// BoundaryCommit is emitted after every successful boundary edit.
type BoundaryCommit struct {
	// Ring is closed: its first coordinate is repeated at the end.
	Ring         []geometry.Coord
	AreaHectares float64
}

// VarietyCommit is emitted after every successful tree point edit.
type VarietyCommit struct {
	Variety   int
	Geometry  geometry.Geometry
	TreeCount int
}

// Owner receives committed edits. It is the parcel or variety record the
// editors work for.
type Owner interface {
	BoundaryCommitted(BoundaryCommit)
	VarietyCommitted(VarietyCommit)
}
