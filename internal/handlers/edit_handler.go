package handlers

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	apierrors "github.com/stwalsh4118/orchard/internal/errors"
	"github.com/stwalsh4118/orchard/internal/middleware"
	"github.com/stwalsh4118/orchard/internal/session"
)

// EditHandler upgrades requests to live editing sessions.
type EditHandler struct {
	ctx      context.Context
	parcels  *ParcelHandler
	deps     session.Deps
	opts     session.Options
	upgrader websocket.Upgrader
	active   sync.WaitGroup
}

// NewEditHandler creates an EditHandler. Sessions end when ctx is cancelled.
// Upgrades are accepted from allowedOrigins only; "*" allows any origin.
func NewEditHandler(ctx context.Context, parcels *ParcelHandler, deps session.Deps, opts session.Options, allowedOrigins []string) *EditHandler {
	return &EditHandler{
		ctx:     ctx,
		parcels: parcels,
		deps:    deps,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// Edit handles GET /api/v1/parcels/:id/edit.
func (h *EditHandler) Edit(c *gin.Context) {
	if err := h.ctx.Err(); err != nil {
		apierrors.ServiceUnavailable(c, "Server is shutting down", err)
		return
	}
	id, ok := parcelID(c)
	if !ok {
		return
	}
	parcel, err := h.parcels.service.Get(c.Request.Context(), id)
	if err != nil {
		h.parcels.fail(c, err, "Failed to open editing session")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// The upgrader has already written the error response.
		if log := middleware.GetLogger(c); log != nil {
			log.Warn("Websocket upgrade failed", map[string]interface{}{
				"parcel_id": id,
				"error":     err.Error(),
			})
		}
		return
	}

	h.active.Add(1)
	defer h.active.Done()

	s := session.New(parcel, h.deps, h.opts)
	if err := s.Run(h.ctx, conn); err != nil {
		h.deps.Log.Warn("Editing session ended with error", map[string]interface{}{
			"parcel_id":  id,
			"session_id": s.ID,
			"error":      err.Error(),
		})
	}
}

// Wait blocks until every session has ended and written its edits.
func (h *EditHandler) Wait() {
	h.active.Wait()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set["*"] || set[origin]
	}
}
