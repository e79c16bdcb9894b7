package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/service"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc service.NotificationService
	log *zap.Logger
}

func NewNotificationHandler(svc service.NotificationService, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: log}
}

type NotificationResponse struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Title          string  `json:"title"`
	Message        string  `json:"message"`
	ConversationID *string `json:"chatId,omitempty"`
	SenderUID      string  `json:"senderId,omitempty"`
	Read           bool    `json:"read"`
	CreatedAt      string  `json:"createdAt"`
}

func toNotificationResponse(n model.Notification) NotificationResponse {
	return NotificationResponse{
		ID:             n.ID,
		Type:           string(n.Kind),
		Title:          n.Title,
		Message:        n.Text,
		ConversationID: n.ConversationID,
		SenderUID:      n.SenderUID,
		Read:           n.Read,
		CreatedAt:      n.CreatedAt.Format(time.RFC3339),
	}
}

func (h *NotificationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	unreadOnly := c.QueryParam("unread_only") == "true"
	list, unreadCount, err := h.svc.List(c.Request().Context(), uid, unreadOnly)
	if err != nil {
		return writeError(c, h.log, err, "failed to fetch notifications")
	}
	resp := make([]NotificationResponse, 0, len(list))
	for _, n := range list {
		resp = append(resp, toNotificationResponse(n))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": resp,
		"unreadCount":   unreadCount,
	})
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.MarkRead(c.Request().Context(), uid, c.Param("id")); err != nil {
		return writeError(c, h.log, err, "failed to mark read")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), uid); err != nil {
		return writeError(c, h.log, err, "failed to mark read")
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.Delete(c.Request().Context(), uid, c.Param("id")); err != nil {
		return writeError(c, h.log, err, "failed to delete notification")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *NotificationHandler) DeleteAll(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.DeleteAll(c.Request().Context(), uid); err != nil {
		return writeError(c, h.log, err, "failed to delete notifications")
	}
	return c.NoContent(http.StatusNoContent)
}
