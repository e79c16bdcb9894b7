package session

import (
	"context"
	"testing"
	"time"

	"github.com/shinyyama/marketchat/internal/chat"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository/memrepo"
	"github.com/shinyyama/marketchat/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type feedSnapshot struct {
	list   []model.Notification
	unread int
}

type fakeSink struct {
	chats chan chat.View
	feeds chan feedSnapshot
}

func newFakeSink() *fakeSink {
	return &fakeSink{chats: make(chan chat.View, 16), feeds: make(chan feedSnapshot, 16)}
}

func (f *fakeSink) RenderChat(v chat.View) { f.chats <- v }

func (f *fakeSink) RenderNotifications(list []model.Notification, unread int) {
	f.feeds <- feedSnapshot{list: list, unread: unread}
}

func nextFeed(t *testing.T, ch <-chan feedSnapshot) feedSnapshot {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no notification snapshot")
		return feedSnapshot{}
	}
}

func newDeps() Deps {
	store := memrepo.New().Store()
	log := zap.NewNop()
	profiles := service.NewProfileService(store.Users, log)
	notifications := service.NewNotificationService(store.Notifications, log, 4)
	return Deps{
		Conversations: service.NewConversationService(store.Conversations, store.Messages, store.Listings, notifications, profiles, log),
		Notifications: notifications,
		Profiles:      profiles,
		Messages:      store.Messages,
		Feed:          store.Notifications,
		Log:           log,
	}
}

func TestSessionPushesNotificationFeed(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()
	sink := newFakeSink()

	s := New(deps, "S", sink)
	defer s.Close()
	assert.Equal(t, 1, s.Subscriptions())
	assert.Empty(t, nextFeed(t, sink.feeds).list)

	cv, _, err := deps.Conversations.StartOrGet(ctx, "L", "S", "B")
	require.NoError(t, err)
	_, err = deps.Conversations.SendMessage(ctx, cv.ID, "B", "is it still available?", nil)
	require.NoError(t, err)

	snap := nextFeed(t, sink.feeds)
	require.Len(t, snap.list, 1)
	assert.Equal(t, 1, snap.unread)

	require.NoError(t, s.Notifications.MarkAllRead(ctx, "S"))
	snap = nextFeed(t, sink.feeds)
	assert.Zero(t, snap.unread)
}

func TestSessionChatAndClose(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()
	sink := newFakeSink()
	cv, _, err := deps.Conversations.StartOrGet(ctx, "L", "S", "B")
	require.NoError(t, err)

	s := New(deps, "B", sink)
	require.NoError(t, s.Chat.Open(ctx, cv.ID))
	assert.Equal(t, 2, s.Subscriptions())
	select {
	case v := <-sink.chats:
		assert.Equal(t, cv.ID, v.Conversation.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no chat render")
	}

	s.Close()
	s.Close()
	assert.Zero(t, s.Subscriptions())
	select {
	case <-s.Done():
	default:
		t.Fatal("Done not closed")
	}
	_, err = s.Chat.Send(ctx, "hello", nil)
	assert.ErrorIs(t, err, service.ErrInvalidState)
}

func TestRegistry(t *testing.T) {
	deps := newDeps()
	r := NewRegistry()
	a := New(deps, "A", newFakeSink())
	b := New(deps, "B", newFakeSink())

	require.True(t, r.Add(a))
	require.True(t, r.Add(b))
	assert.Equal(t, 2, r.Len())

	r.Remove(a)
	assert.Equal(t, 1, r.Len())
	assert.Zero(t, a.Subscriptions())

	r.CloseAll()
	assert.Zero(t, r.Len())
	assert.Zero(t, b.Subscriptions())

	late := New(deps, "C", newFakeSink())
	assert.False(t, r.Add(late))
	assert.Zero(t, late.Subscriptions())
}

func TestClosedSessionRejectsChat(t *testing.T) {
	deps := newDeps()
	ctx := context.Background()
	cv, _, err := deps.Conversations.StartOrGet(ctx, "L", "S", "B")
	require.NoError(t, err)

	s := New(deps, "B", newFakeSink())
	s.Close()

	assert.ErrorIs(t, s.Chat.Open(ctx, cv.ID), service.ErrInvalidState)
	_, state := s.Chat.Current()
	assert.Equal(t, chat.StateIdle, state)
	assert.Zero(t, s.Subscriptions())

	_, err = s.Chat.Send(ctx, "after logout", nil)
	assert.ErrorIs(t, err, service.ErrInvalidState)
	msgs, err := deps.Messages.ListByConversation(ctx, cv.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
