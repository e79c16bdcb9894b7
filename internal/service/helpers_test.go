package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository"
	"github.com/shinyyama/marketchat/internal/repository/memrepo"
	"go.uber.org/zap"
)

var errInjected = errors.New("injected store failure")

// tickingClock returns strictly increasing timestamps one second apart.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

type fixture struct {
	db            *memrepo.DB
	store         *repository.Store
	profiles      ProfileService
	notifications NotificationService
	conversations ConversationService
}

func newFixture() *fixture {
	db := memrepo.New()
	db.SetClock(tickingClock())
	return newFixtureWith(db, db.Store())
}

func newFixtureWith(db *memrepo.DB, store *repository.Store) *fixture {
	log := zap.NewNop()
	profiles := NewProfileService(store.Users, log)
	notifications := NewNotificationService(store.Notifications, log, 4)
	return &fixture{
		db:            db,
		store:         store,
		profiles:      profiles,
		notifications: notifications,
		conversations: NewConversationService(store.Conversations, store.Messages, store.Listings, notifications, profiles, log),
	}
}

// flakyNotifications fails MarkRead/Delete for the ids in failIDs.
type flakyNotifications struct {
	repository.NotificationRepository
	failIDs map[string]bool
}

func (f flakyNotifications) MarkRead(ctx context.Context, uid, id string) error {
	if f.failIDs[id] {
		return errInjected
	}
	return f.NotificationRepository.MarkRead(ctx, uid, id)
}

func (f flakyNotifications) Delete(ctx context.Context, uid, id string) error {
	if f.failIDs[id] {
		return errInjected
	}
	return f.NotificationRepository.Delete(ctx, uid, id)
}

// flakySummary fails every conversation summary update.
type flakySummary struct {
	repository.ConversationRepository
}

func (flakySummary) UpdateLastMessage(context.Context, string, string, time.Time) error {
	return errInjected
}

func seedNotifications(ctx context.Context, repo repository.NotificationRepository, uid string, total, unread int) ([]model.Notification, error) {
	out := make([]model.Notification, 0, total)
	for i := 0; i < total; i++ {
		n := model.Notification{
			ID:      string(rune('a' + i)),
			UserUID: uid,
			Kind:    model.NotificationKindMessage,
			Text:    "hello",
			Read:    i >= unread,
		}
		if err := repo.Create(ctx, &n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}
