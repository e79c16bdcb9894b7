package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/service"
	"go.uber.org/zap"
)

type ConversationHandler struct {
	svc service.ConversationService
	log *zap.Logger
}

func NewConversationHandler(svc service.ConversationService, log *zap.Logger) *ConversationHandler {
	return &ConversationHandler{svc: svc, log: log}
}

type ConversationResponse struct {
	ConversationID string          `json:"conversationId"`
	ListingID      string          `json:"listingId,omitempty"`
	SellerUID      string          `json:"sellerUid"`
	BuyerUID       string          `json:"buyerUid"`
	LastMessage    string          `json:"lastMessage"`
	LastMessageAt  *string         `json:"lastMessageAt,omitempty"`
	CreatedAt      string          `json:"createdAt"`
	Partner        *PartnerSummary `json:"partner,omitempty"`
	Warnings       []string        `json:"warnings,omitempty"`
}

type PartnerSummary struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

type StartConversationRequest struct {
	SellerUID string `json:"sellerUid"`
}

type MessageRequest struct {
	Text     string  `json:"text"`
	ImageURL *string `json:"imageUrl"`
}

type MessageResponse struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversationId"`
	SenderUID      string  `json:"senderUid"`
	Text           string  `json:"text"`
	ImageURL       *string `json:"imageUrl,omitempty"`
	CreatedAt      string  `json:"createdAt"`
}

func toConversationResponse(cv model.Conversation) ConversationResponse {
	resp := ConversationResponse{
		ConversationID: cv.ID,
		ListingID:      cv.ListingID,
		SellerUID:      cv.SellerUID,
		BuyerUID:       cv.BuyerUID,
		LastMessage:    cv.LastMessage,
		CreatedAt:      cv.CreatedAt.Format(time.RFC3339),
	}
	if cv.LastMessageAt != nil {
		at := cv.LastMessageAt.Format(time.RFC3339)
		resp.LastMessageAt = &at
	}
	return resp
}

func toMessageResponse(m model.Message) MessageResponse {
	return MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderUID:      m.SenderUID,
		Text:           m.Text,
		ImageURL:       m.ImageURL,
		CreatedAt:      m.CreatedAt.Format(time.RFC3339Nano),
	}
}

// StartFromListing opens (or reuses) the caller's conversation with the seller of a listing.
// Opening messages that failed to send are reported under "warnings".
func (h *ConversationHandler) StartFromListing(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req StartConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	cv, err := h.svc.Contact(c.Request().Context(), c.Param("id"), req.SellerUID, uid)
	if err != nil && cv == nil {
		return writeError(c, h.log, err, "failed to start conversation")
	}
	resp := toConversationResponse(*cv)
	if err != nil {
		resp.Warnings = strings.Split(err.Error(), "\n")
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) List(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	entries, err := h.svc.ListByUser(c.Request().Context(), uid)
	if err != nil {
		return writeError(c, h.log, err, "failed to fetch conversations")
	}
	resp := make([]ConversationResponse, 0, len(entries))
	for _, e := range entries {
		r := toConversationResponse(e.Conversation)
		r.Partner = &PartnerSummary{
			UID:         e.Partner.UID,
			DisplayName: e.Partner.DisplayName,
			PhotoURL:    strPtrOrNil(e.Partner.PhotoURL),
		}
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) Get(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	cv, err := h.svc.Get(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, h.log, err, "failed to fetch conversation")
	}
	return c.JSON(http.StatusOK, toConversationResponse(*cv))
}

func (h *ConversationHandler) Delete(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	if err := h.svc.Delete(c.Request().Context(), c.Param("id"), uid); err != nil {
		return writeError(c, h.log, err, "failed to delete conversation")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ConversationHandler) ListMessages(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	msgs, err := h.svc.ListMessages(c.Request().Context(), c.Param("id"), uid)
	if err != nil {
		return writeError(c, h.log, err, "failed to fetch messages")
	}
	resp := make([]MessageResponse, 0, len(msgs))
	for _, m := range msgs {
		resp = append(resp, toMessageResponse(m))
	}
	return c.JSON(http.StatusOK, resp)
}

// CreateMessage returns 201 whenever the message itself was stored. Failures of the
// follow-up writes are listed under "warnings".
func (h *ConversationHandler) CreateMessage(c echo.Context) error {
	uid := currentUID(c)
	if uid == "" {
		return unauthorized(c)
	}
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, NewErrorResponse("bad_request", "invalid body"))
	}
	msg, err := h.svc.SendMessage(c.Request().Context(), c.Param("id"), uid, req.Text, req.ImageURL)
	if msg == nil {
		return writeError(c, h.log, err, "failed to send message")
	}
	body := map[string]interface{}{"message": toMessageResponse(*msg)}
	if err != nil {
		body["warnings"] = strings.Split(err.Error(), "\n")
	}
	return c.JSON(http.StatusCreated, body)
}
