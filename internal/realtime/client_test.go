package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shinyyama/marketchat/internal/chat"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository/memrepo"
	"github.com/shinyyama/marketchat/internal/service"
	"github.com/shinyyama/marketchat/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	Type          string               `json:"type"`
	Command       string               `json:"command"`
	Chat          chat.View            `json:"chat"`
	Notifications []model.Notification `json:"notifications"`
	UnreadCount   int                  `json:"unreadCount"`
	Error         errorPayload         `json:"error"`
}

func newDeps() session.Deps {
	db := memrepo.New()
	var mu sync.Mutex
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	db.SetClock(func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	})
	store := db.Store()
	log := zap.NewNop()
	profiles := service.NewProfileService(store.Users, log)
	notifications := service.NewNotificationService(store.Notifications, log, 4)
	return session.Deps{
		Conversations: service.NewConversationService(store.Conversations, store.Messages, store.Listings, notifications, profiles, log),
		Notifications: notifications,
		Profiles:      profiles,
		Messages:      store.Messages,
		Feed:          store.Notifications,
		Log:           log,
	}
}

type testServer struct {
	*httptest.Server
	deps session.Deps
	reg  *session.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{deps: newDeps(), reg: session.NewRegistry()}
	up := NewUpgrader(nil)
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(r.Context(), ws, r.URL.Query().Get("uid"), ts.deps, ts.reg)
	}))
	t.Cleanup(func() {
		ts.reg.CloseAll()
		ts.Server.Close()
	})
	return ts
}

func (ts *testServer) dial(t *testing.T, uid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/?uid=" + uid
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readUntil reads frames until match accepts one.
func readUntil(t *testing.T, ws *websocket.Conn, match func(received) bool) received {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		require.NoError(t, ws.SetReadDeadline(deadline))
		_, data, err := ws.ReadMessage()
		require.NoError(t, err)
		var f received
		require.NoError(t, json.Unmarshal(data, &f))
		if match(f) {
			return f
		}
	}
}

func sendCmd(t *testing.T, ws *websocket.Conn, in inboundFrame) {
	t.Helper()
	require.NoError(t, ws.WriteJSON(in))
}

func TestServeChatRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	ctx := context.Background()
	cv, _, err := ts.deps.Conversations.StartOrGet(ctx, "L", "S", "B")
	require.NoError(t, err)

	ws := ts.dial(t, "B")
	first := readUntil(t, ws, func(f received) bool { return f.Type == FrameNotifications })
	assert.Empty(t, first.Notifications)
	assert.Zero(t, first.UnreadCount)

	sendCmd(t, ws, inboundFrame{Type: CmdOpen, ConversationID: cv.ID})
	opened := readUntil(t, ws, func(f received) bool { return f.Type == FrameChat })
	assert.Equal(t, cv.ID, opened.Chat.Conversation.ID)
	assert.Equal(t, "B", opened.Chat.LocalUID)

	sendCmd(t, ws, inboundFrame{Type: CmdSend, Text: "hello"})
	got := readUntil(t, ws, func(f received) bool { return f.Type == FrameChat && len(f.Chat.Messages) == 1 })
	assert.Equal(t, "hello", got.Chat.Messages[0].Text)

	_, err = ts.deps.Conversations.SendMessage(ctx, cv.ID, "S", "is it still available?", nil)
	require.NoError(t, err)
	got = readUntil(t, ws, func(f received) bool { return f.Type == FrameChat && len(f.Chat.Messages) == 2 })
	assert.Equal(t, "S", got.Chat.Messages[1].SenderUID)
	feed := readUntil(t, ws, func(f received) bool { return f.Type == FrameNotifications && f.UnreadCount == 1 })
	require.Len(t, feed.Notifications, 1)
	assert.Equal(t, "is it still available?", feed.Notifications[0].Text)

	sendCmd(t, ws, inboundFrame{Type: CmdMarkAllRead})
	readUntil(t, ws, func(f received) bool {
		return f.Type == FrameNotifications && f.UnreadCount == 0 && len(f.Notifications) == 1
	})
}

func TestServeReportsCommandErrors(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t, "B")
	readUntil(t, ws, func(f received) bool { return f.Type == FrameNotifications })

	sendCmd(t, ws, inboundFrame{Type: CmdSend, Text: "nobody listening"})
	f := readUntil(t, ws, func(f received) bool { return f.Type == FrameError })
	assert.Equal(t, CmdSend, f.Command)
	assert.Equal(t, "invalid_state", f.Error.Code)

	sendCmd(t, ws, inboundFrame{Type: "shout"})
	f = readUntil(t, ws, func(f received) bool { return f.Type == FrameError })
	assert.Equal(t, "bad_request", f.Error.Code)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte("{not json")))
	f = readUntil(t, ws, func(f received) bool { return f.Type == FrameError })
	assert.Equal(t, "bad_request", f.Error.Code)

	sendCmd(t, ws, inboundFrame{Type: CmdOpen, ConversationID: "missing"})
	f = readUntil(t, ws, func(f received) bool { return f.Type == FrameError })
	assert.Equal(t, "not_found", f.Error.Code)
}

func TestServeRemovesSessionOnDisconnect(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t, "B")
	readUntil(t, ws, func(f received) bool { return f.Type == FrameNotifications })
	require.Equal(t, 1, ts.reg.Len())

	require.NoError(t, ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second)))
	assert.Eventually(t, func() bool { return ts.reg.Len() == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestRegistryCloseAllDisconnectsClients(t *testing.T) {
	ts := newTestServer(t)
	ws := ts.dial(t, "B")
	readUntil(t, ws, func(f received) bool { return f.Type == FrameNotifications })

	ts.reg.CloseAll()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
			return
		}
	}
}

func TestUpgraderOrigin(t *testing.T) {
	up := NewUpgrader(func(origin string) bool { return strings.HasSuffix(origin, ".web.app") })
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"https://market.web.app", true},
		{"https://evil.example", false},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if tt.origin != "" {
			r.Header.Set("Origin", tt.origin)
		}
		assert.Equal(t, tt.want, up.CheckOrigin(r), tt.origin)
	}
}
