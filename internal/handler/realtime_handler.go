package handler

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/realtime"
	"github.com/shinyyama/marketchat/internal/session"
)

// RealtimeHandler upgrades authenticated requests to a websocket carrying one session.
type RealtimeHandler struct {
	deps     session.Deps
	registry *session.Registry
	upgrader *websocket.Upgrader
}

func NewRealtimeHandler(deps session.Deps, registry *session.Registry, allowOrigin func(string) bool) *RealtimeHandler {
	return &RealtimeHandler{deps: deps, registry: registry, upgrader: realtime.NewUpgrader(allowOrigin)}
}

func (h *RealtimeHandler) Connect(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the error response.
		return nil
	}
	realtime.Serve(c.Request().Context(), ws, uid, h.deps, h.registry)
	return nil
}
