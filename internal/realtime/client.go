// Package realtime carries a session's snapshots to the browser over a websocket and feeds the
// browser's commands back into the session.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shinyyama/marketchat/internal/chat"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/service"
	"github.com/shinyyama/marketchat/internal/session"
	"go.uber.org/zap"
)

// Client renders one session as JSON frames and executes its inbound commands.
type Client struct {
	send func([]byte) error
	sess *session.Session
	log  *zap.Logger
}

func (c *Client) RenderChat(v chat.View) {
	c.write(chatFrame{Type: FrameChat, Chat: v})
}

func (c *Client) RenderNotifications(list []model.Notification, unread int) {
	if list == nil {
		list = []model.Notification{}
	}
	c.write(notificationsFrame{Type: FrameNotifications, Notifications: list, UnreadCount: unread})
}

func (c *Client) writeError(command string, err error) {
	c.write(errorFrame{
		Type:    FrameError,
		Command: command,
		Error:   errorPayload{Code: service.Code(err), Message: err.Error()},
	})
}

func (c *Client) write(frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		c.log.Error("encode frame", zap.Error(err))
		return
	}
	if err := c.send(payload); err != nil {
		c.log.Debug("drop frame", zap.Error(err))
	}
}

// handle executes one inbound command against the session.
func (c *Client) handle(ctx context.Context, in inboundFrame) error {
	s := c.sess
	switch in.Type {
	case CmdOpen:
		if in.ConversationID == "" {
			return fmt.Errorf("%w: conversationId is required", service.ErrValidation)
		}
		return s.Chat.Open(ctx, in.ConversationID)
	case CmdSend:
		_, err := s.Chat.Send(ctx, in.Text, in.ImageURL)
		return err
	case CmdClose:
		s.Chat.Close()
		return nil
	case CmdMarkRead:
		return s.Notifications.MarkRead(ctx, s.UID, in.NotificationID)
	case CmdMarkAllRead:
		return s.Notifications.MarkAllRead(ctx, s.UID)
	case CmdDeleteNotification:
		return s.Notifications.Delete(ctx, s.UID, in.NotificationID)
	case CmdDeleteAllNotifications:
		return s.Notifications.DeleteAll(ctx, s.UID)
	}
	return fmt.Errorf("%w: unknown command %q", service.ErrValidation, in.Type)
}

// NewUpgrader accepts upgrades from origins allow approves. Requests without an Origin header
// are accepted.
func NewUpgrader(allow func(origin string) bool) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allow == nil || allow(origin)
		},
	}
}

// Serve runs a session for uid over ws until the peer disconnects or the session is closed
// elsewhere, e.g. by Registry.CloseAll on shutdown.
func Serve(ctx context.Context, ws *websocket.Conn, uid string, deps session.Deps, reg *session.Registry) {
	conn := NewConnection(uid, ws)
	log := deps.Log.With(zap.String("conn", conn.ID))
	client := &Client{send: conn.Send, log: log}
	client.sess = session.New(deps, uid, client)
	if !reg.Add(client.sess) {
		conn.Close(websocket.CloseGoingAway, "server shutting down")
		return
	}
	conn.Start()
	defer conn.Close(websocket.CloseNormalClosure, "")
	defer reg.Remove(client.sess)

	go func() {
		select {
		case <-client.sess.Done():
			conn.Close(websocket.CloseGoingAway, "session closed")
		case <-conn.Closed():
		}
	}()

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Info("websocket closed", zap.Error(err))
			}
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(pongWait))

		var in inboundFrame
		if err := json.Unmarshal(data, &in); err != nil {
			client.writeError("", fmt.Errorf("%w: malformed frame", service.ErrValidation))
			continue
		}
		if err := client.handle(ctx, in); err != nil {
			log.Debug("command failed", zap.String("command", in.Type), zap.Error(err))
			client.writeError(in.Type, err)
		}
	}
}
