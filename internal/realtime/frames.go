package realtime

import (
	"github.com/shinyyama/marketchat/internal/chat"
	"github.com/shinyyama/marketchat/internal/model"
)

// Inbound command types.
const (
	CmdOpen                   = "open"
	CmdSend                   = "send"
	CmdClose                  = "close"
	CmdMarkRead               = "markRead"
	CmdMarkAllRead            = "markAllRead"
	CmdDeleteNotification     = "deleteNotification"
	CmdDeleteAllNotifications = "deleteAllNotifications"
)

// Outbound frame types.
const (
	FrameChat          = "chat"
	FrameNotifications = "notifications"
	FrameError         = "error"
)

type inboundFrame struct {
	Type           string  `json:"type"`
	ConversationID string  `json:"conversationId,omitempty"`
	NotificationID string  `json:"notificationId,omitempty"`
	Text           string  `json:"text,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`
}

type chatFrame struct {
	Type string    `json:"type"`
	Chat chat.View `json:"chat"`
}

type notificationsFrame struct {
	Type          string               `json:"type"`
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unreadCount"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorFrame struct {
	Type    string       `json:"type"`
	Command string       `json:"command,omitempty"`
	Error   errorPayload `json:"error"`
}
