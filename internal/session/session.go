// Package session runs live editing sessions over websockets.
//
// A session owns the boundary and point editors of one parcel. The client
// map is a remote surface: editors draw through handle operations that are
// sent as JSON ops, and the client reports gestures back as JSON messages.
// Gestures, frame ticks and save results are all handled on the session
// goroutine, so the editors never see concurrent calls.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/stwalsh4118/orchard/internal/editor"
	"github.com/stwalsh4118/orchard/internal/geometry"
	"github.com/stwalsh4118/orchard/internal/logger"
	"github.com/stwalsh4118/orchard/internal/metrics"
	"github.com/stwalsh4118/orchard/internal/models"
	"github.com/stwalsh4118/orchard/internal/services"
	"github.com/stwalsh4118/orchard/internal/viewport"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 << 10

	defaultFrameInterval = 16 * time.Millisecond
)

// ErrUnknownGesture is reported for messages with an unrecognized type.
var ErrUnknownGesture = errors.New("unknown gesture")

// Options configures a session.
type Options struct {
	Viewport viewport.Options
	// FrameInterval is how often pending map fits are applied when the
	// client does not send frame messages.
	FrameInterval time.Duration
}

// Deps are the collaborators shared by all sessions.
type Deps struct {
	Parcels services.ParcelService
	// Refresh may be nil.
	Refresh services.RefreshScheduler
	// Metrics may be nil.
	Metrics *metrics.Provider
	Log     *logger.Logger
}

// Session is one live editing session of a parcel.
type Session struct {
	ID       string
	parcelID int64

	log     *logger.Logger
	metrics *metrics.Provider

	surface  *remoteSurface
	frames   viewport.FrameQueue
	view     *viewport.Controller
	boundary *editor.BoundaryEditor
	points   *editor.PointEditor

	committer     *services.Committer
	results       chan services.SaveResult
	frameInterval time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// New loads parcel into a new session. The initial scene is queued and sent
// once Run starts.
func New(parcel *models.Parcel, deps Deps, opts Options) *Session {
	s := &Session{
		ID:            uuid.NewString(),
		parcelID:      parcel.ID,
		metrics:       deps.Metrics,
		surface:       &remoteSurface{},
		results:       make(chan services.SaveResult, 16),
		frameInterval: opts.FrameInterval,
		done:          make(chan struct{}),
	}
	if s.frameInterval <= 0 {
		s.frameInterval = defaultFrameInterval
	}
	s.log = deps.Log.WithParcel(parcel.ID).With(map[string]interface{}{"session_id": s.ID})

	s.view = viewport.NewController(s.surface, &s.frames, opts.Viewport)
	owner := &sessionOwner{s: s}
	s.boundary = editor.NewBoundaryEditor(s.surface, owner, s.surface)
	s.points = editor.NewPointEditor(s.surface, owner, s.surface)
	s.committer = services.NewCommitter(parcel.ID, deps.Parcels, deps.Refresh, deps.Metrics, deps.Log, s.deliver)

	boundary := parcel.Boundary.Geometry
	varieties := make([]geometry.Geometry, len(parcel.Varieties))
	for i, v := range parcel.Varieties {
		varieties[i] = v.Geometry.Geometry
	}
	s.boundary.Load(boundary)
	s.points.Load(boundary, varieties)
	s.view.Show(append([]geometry.Geometry{boundary}, varieties...)...)
	return s
}

// Run serves the session on conn until the client goes away or ctx is
// cancelled. It closes conn and the session before returning.
func (s *Session) Run(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()
	defer s.Close()

	s.log.Info("Editing session started", nil)
	defer s.log.Info("Editing session ended", nil)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	inbox := make(chan inbound)
	readErr := make(chan error, 1)
	go s.read(conn, inbox, readErr)

	frameTicker := time.NewTicker(s.frameInterval)
	defer frameTicker.Stop()
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	if err := s.flush(conn); err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return nil
		case err := <-readErr:
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read gesture: %w", err)
		case in := <-inbox:
			if in.err != nil {
				s.surface.Warn("Malformed message ignored")
				s.log.Warn("Malformed gesture", map[string]interface{}{"error": in.err.Error()})
			} else {
				s.Handle(in.gesture)
			}
		case res := <-s.results:
			s.saved(res)
		case <-frameTicker.C:
			s.frames.Flush()
		case <-pingTicker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return fmt.Errorf("failed to ping client: %w", err)
			}
		}
		if err := s.flush(conn); err != nil {
			return err
		}
	}
}

// Close stops the session and writes the edits still queued for saving.
// It is safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		s.committer.Close()
	})
}

// Handle applies one gesture. Rejected gestures leave the scene unchanged
// and queue a notice instead.
func (s *Session) Handle(g Gesture) {
	var err error
	switch g.Type {
	case GestureBeginBoundary:
		err = s.boundary.Begin()
	case GestureEndBoundary:
		s.boundary.Exit()
	case GestureVertexDrag:
		err = s.boundary.DragVertex(g.Index, g.coord())
	case GestureVertexDragEnd:
		err = s.boundary.EndVertexDrag(g.Index)
	case GestureVertexDelete:
		err = s.boundary.DeleteVertex(g.Index)
	case GestureMidpointClick:
		err = s.boundary.InsertAtMidpoint(g.Index)
	case GestureSelectMode:
		if mode := editor.ParseMode(g.Mode); mode == editor.ModeNone {
			err = s.points.SetContext(editor.Context{})
		} else {
			err = s.points.Toggle(g.Variety, mode)
		}
	case GestureMapClick:
		err = s.points.MapClick(g.coord())
	case GestureMarkerDown:
		err = s.points.MarkerDown(g.Variety, g.Index)
	case GestureMarkerMove:
		err = s.points.MarkerMove(g.Variety, g.Index, g.coord())
	case GestureMarkerUp:
		err = s.points.MarkerUp(g.Variety, g.Index)
	case GestureFrame:
		s.frames.Flush()
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownGesture, g.Type)
	}
	if err != nil {
		s.reject(g, err)
	}
}

// reject records a refused gesture. The editors already told the user about
// containment and vertex count failures.
func (s *Session) reject(g Gesture, err error) {
	switch {
	case errors.Is(err, editor.ErrOutsideParcel):
		s.metrics.EditRejected(metrics.ReasonOutsideParcel)
	case errors.Is(err, editor.ErrMinVertices):
		s.metrics.EditRejected(metrics.ReasonMinVertices)
	case errors.Is(err, editor.ErrNoBoundary):
		s.metrics.EditRejected(metrics.ReasonNoGeometry)
		s.surface.Warn(err.Error())
	default:
		s.surface.Warn(err.Error())
	}
	s.log.Warn("Gesture rejected", map[string]interface{}{
		"gesture": g.Type,
		"reason":  err.Error(),
	})
}

func (s *Session) saved(res services.SaveResult) {
	if res.Err != nil {
		msg := "Could not save the parcel boundary"
		if res.Kind == metrics.KindVariety {
			msg = fmt.Sprintf("Could not save the trees of variety %d", res.Variety+1)
		}
		s.surface.Error(msg)
		return
	}
	op := Op{Type: OpCommitted, Kind: res.Kind}
	if res.Kind == metrics.KindVariety {
		op.Variety = intPtr(res.Variety)
		op.TreeCount = intPtr(res.TreeCount)
		if data, err := geometry.Marshal(res.Geometry); err == nil {
			op.Geometry = data
		}
	} else {
		area := res.AreaHectares
		op.Area = &area
		op.Ring = res.Ring
	}
	s.surface.push(op)
}

// deliver hands a save result to the session goroutine. Results arriving
// after the session ended are dropped; the committer has logged them.
func (s *Session) deliver(res services.SaveResult) {
	select {
	case s.results <- res:
	case <-s.done:
	}
}

func (s *Session) flush(conn *websocket.Conn) error {
	for _, op := range s.surface.drain() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(op); err != nil {
			return fmt.Errorf("failed to send %s: %w", op.Type, err)
		}
	}
	return nil
}

type inbound struct {
	gesture Gesture
	err     error
}

func (s *Session) read(conn *websocket.Conn, inbox chan<- inbound, readErr chan<- error) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		var in inbound
		in.err = json.Unmarshal(data, &in.gesture)
		select {
		case inbox <- in:
		case <-s.done:
			return
		}
	}
}

// sessionOwner forwards committed edits to the committer and keeps the
// point editor and the viewport in step with the boundary.
type sessionOwner struct {
	s *Session
}

func (o *sessionOwner) BoundaryCommitted(c editor.BoundaryCommit) {
	s := o.s
	s.committer.Boundary(c)
	polygon := geometry.Polygon{Ring: c.Ring}
	s.points.SetBoundary(polygon)
	s.view.Show(polygon)
	s.log.Debug("Boundary committed", map[string]interface{}{
		"vertices": len(c.Ring) - 1,
		"area_ha":  c.AreaHectares,
	})
}

func (o *sessionOwner) VarietyCommitted(c editor.VarietyCommit) {
	o.s.committer.Variety(c)
	o.s.log.Debug("Variety committed", map[string]interface{}{
		"variety":    c.Variety,
		"tree_count": c.TreeCount,
	})
}
