// Package session replaces ambient "current user" state with an explicit object created when
// a user signs in and destroyed when they sign out or disconnect.
package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/shinyyama/marketchat/internal/chat"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository"
	"github.com/shinyyama/marketchat/internal/service"
	"github.com/shinyyama/marketchat/internal/subscription"
	"go.uber.org/zap"
)

// Sink receives everything a session pushes to its client.
type Sink interface {
	RenderChat(v chat.View)
	RenderNotifications(list []model.Notification, unread int)
}

// Deps are the process-wide collaborators every session shares.
type Deps struct {
	Conversations service.ConversationService
	Notifications service.NotificationService
	Profiles      service.ProfileService
	Messages      repository.MessageRepository
	Feed          repository.NotificationRepository
	Subscriptions subscription.Options
	Log           *zap.Logger
}

type Session struct {
	ID  string
	UID string

	Chat          *chat.Controller
	Notifications service.NotificationService

	subs *subscription.Manager
	log  *zap.Logger
	once sync.Once
	done chan struct{}
}

// New starts a session for uid: it opens the notification feed subscription right away and
// leaves the chat controller idle.
func New(deps Deps, uid string, sink Sink) *Session {
	id := uuid.NewString()
	log := deps.Log.With(zap.String("session", id), zap.String("uid", uid))
	subs := subscription.NewManager(log, deps.Subscriptions)
	s := &Session{
		ID:            id,
		UID:           uid,
		Notifications: deps.Notifications,
		subs:          subs,
		log:           log,
		done:          make(chan struct{}),
		Chat:          chat.NewController(uid, subs, deps.Conversations, deps.Profiles, deps.Messages, sink.RenderChat, log),
	}

	feed := func(ctx context.Context, emit func([]model.Notification)) error {
		return deps.Feed.WatchByUser(ctx, uid, emit)
	}
	subscription.Subscribe(subs, subscription.NotificationsKey(uid), feed, func(list []model.Notification) {
		model.SortNotifications(list)
		sink.RenderNotifications(list, model.CountUnread(list))
	})
	log.Info("session started")
	return s
}

// Subscriptions reports how many live queries the session holds open.
func (s *Session) Subscriptions() int {
	return s.subs.Len()
}

// Close releases every handle the session owns. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		s.Chat.Shutdown()
		s.subs.Close()
		close(s.done)
		s.log.Info("session closed")
	})
}

// Done is closed once the session has been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
