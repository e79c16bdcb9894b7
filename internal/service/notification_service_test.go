package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository/memrepo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"short", "hello", "hello"},
		{"exactly 30", strings.Repeat("a", 30), strings.Repeat("a", 30)},
		{"31", strings.Repeat("a", 31), strings.Repeat("a", 30) + "..."},
		{"multibyte", strings.Repeat("é", 35), strings.Repeat("é", 30) + "..."},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Preview(tt.input); got != tt.want {
				t.Fatalf("got=%q want=%q", got, tt.want)
			}
		})
	}
}

func TestNotifyMessage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	text := strings.Repeat("x", 15) + strings.Repeat("y", 30)
	require.Len(t, text, 45)

	n, err := f.notifications.NotifyMessage(ctx, "r", "c1", "s", text)
	require.NoError(t, err)
	assert.Equal(t, text[:30]+"...", n.Text)
	assert.Equal(t, model.NotificationKindMessage, n.Kind)
	require.NotNil(t, n.ConversationID)
	assert.Equal(t, "c1", *n.ConversationID)

	list, unread, err := f.notifications.List(ctx, "r", false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
	assert.Equal(t, 1, unread)

	_, err = f.notifications.NotifyMessage(ctx, "s", "c1", "s", text)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = f.notifications.NotifyMessage(ctx, "", "c1", "s", text)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNotifyMessageDoesNotDeduplicate(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.notifications.NotifyMessage(ctx, "r", "c1", "s", "same text")
		require.NoError(t, err)
	}
	list, _, err := f.notifications.List(ctx, "r", false)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestMarkAllRead(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := seedNotifications(ctx, f.store.Notifications, "u", 7, 3)
	require.NoError(t, err)

	require.NoError(t, f.notifications.MarkAllRead(ctx, "u"))

	list, unread, err := f.notifications.List(ctx, "u", false)
	require.NoError(t, err)
	assert.Len(t, list, 7)
	assert.Equal(t, 0, unread)
}

func TestMarkAllReadPartialFailure(t *testing.T) {
	db := memrepo.New()
	store := db.Store()
	ctx := context.Background()
	_, err := seedNotifications(ctx, store.Notifications, "u", 7, 3)
	require.NoError(t, err)

	flaky := flakyNotifications{NotificationRepository: store.Notifications, failIDs: map[string]bool{"b": true}}
	svc := NewNotificationService(flaky, zap.NewNop(), 2)

	err = svc.MarkAllRead(ctx, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPartialFailure)
	assert.ErrorIs(t, err, ErrTransientStore)
	var pf *PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, 1, pf.Failed)
	assert.Equal(t, 3, pf.Total)

	list, err := store.Notifications.ListByUser(ctx, "u", false)
	require.NoError(t, err)
	for _, n := range list {
		if n.ID == "b" {
			assert.False(t, n.Read, "failed record must stay unread")
			continue
		}
		assert.True(t, n.Read, "record %s should be read", n.ID)
	}
}

func TestMarkReadAndDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := seedNotifications(ctx, f.store.Notifications, "u", 2, 2)
	require.NoError(t, err)

	require.NoError(t, f.notifications.MarkRead(ctx, "u", "a"))
	_, unread, err := f.notifications.List(ctx, "u", false)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	require.NoError(t, f.notifications.Delete(ctx, "u", "a"))
	assert.ErrorIs(t, f.notifications.Delete(ctx, "u", "a"), ErrNotFound)
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, "other", "b"), ErrNotFound)
	assert.ErrorIs(t, f.notifications.MarkRead(ctx, "u", ""), ErrValidation)
}

func TestDeleteAll(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	_, err := seedNotifications(ctx, f.store.Notifications, "u", 5, 2)
	require.NoError(t, err)

	require.NoError(t, f.notifications.DeleteAll(ctx, "u"))
	list, unread, err := f.notifications.List(ctx, "u", false)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Zero(t, unread)
}

func TestDeleteAllPartialFailure(t *testing.T) {
	db := memrepo.New()
	store := db.Store()
	ctx := context.Background()
	_, err := seedNotifications(ctx, store.Notifications, "u", 4, 0)
	require.NoError(t, err)

	flaky := flakyNotifications{NotificationRepository: store.Notifications, failIDs: map[string]bool{"a": true, "c": true}}
	svc := NewNotificationService(flaky, zap.NewNop(), 0)

	err = svc.DeleteAll(ctx, "u")
	var pf *PartialFailureError
	require.True(t, errors.As(err, &pf))
	assert.Equal(t, 2, pf.Failed)
	assert.Equal(t, 4, pf.Total)

	list, err := store.Notifications.ListByUser(ctx, "u", false)
	require.NoError(t, err)
	ids := []string{list[0].ID, list[1].ID}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}
