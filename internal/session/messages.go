package session

import (
	"encoding/json"

	"github.com/stwalsh4118/orchard/internal/geometry"
)

// Gesture types sent by the client.
const (
	GestureBeginBoundary = "begin_boundary"
	GestureEndBoundary   = "end_boundary"
	GestureVertexDrag    = "vertex_drag"
	GestureVertexDragEnd = "vertex_drag_end"
	GestureVertexDelete  = "vertex_delete"
	GestureMidpointClick = "midpoint_click"
	GestureSelectMode    = "select_mode"
	GestureMapClick      = "map_click"
	GestureMarkerDown    = "marker_down"
	GestureMarkerMove    = "marker_move"
	GestureMarkerUp      = "marker_up"
	GestureFrame         = "frame"
)

// Operation types sent to the client.
const (
	OpAddPolygon = "add_polygon"
	OpSetRing    = "set_ring"
	OpAddMarker  = "add_marker"
	OpMoveMarker = "move_marker"
	OpRemove     = "remove"
	OpFitBounds  = "fit_bounds"
	OpNotice     = "notice"
	OpCommitted  = "committed"
)

// Notice levels.
const (
	LevelWarning = "warning"
	LevelError   = "error"
)

// Gesture is one inbound message. Fields not used by Type are ignored.
type Gesture struct {
	Type    string  `json:"type"`
	Index   int     `json:"index"`
	Variety int     `json:"variety"`
	Mode    string  `json:"mode,omitempty"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
}

func (g Gesture) coord() geometry.Coord {
	return geometry.Coord{g.Lng, g.Lat}
}

// Op is one outbound scene operation. Handle ids are assigned by the server
// and stay valid until a remove op names them.
type Op struct {
	Type string `json:"type"`
	ID   int    `json:"id,omitempty"`

	Ring  []geometry.Coord `json:"ring,omitempty"`
	Style string           `json:"style,omitempty"`

	Position  *geometry.Coord `json:"position,omitempty"`
	Role      string          `json:"role,omitempty"`
	Index     *int            `json:"index,omitempty"`
	Variety   *int            `json:"variety,omitempty"`
	Draggable bool            `json:"draggable,omitempty"`
	Deletable bool            `json:"deletable,omitempty"`

	Bounds  *[4]float64 `json:"bounds,omitempty"`
	Padding int         `json:"padding,omitempty"`
	MaxZoom float64     `json:"max_zoom,omitempty"`

	Level   string `json:"level,omitempty"`
	Message string `json:"message,omitempty"`

	Kind      string          `json:"kind,omitempty"`
	Area      *float64        `json:"area_ha,omitempty"`
	TreeCount *int            `json:"tree_count,omitempty"`
	Geometry  json.RawMessage `json:"geojson,omitempty"`
}

func intPtr(v int) *int { return &v }
