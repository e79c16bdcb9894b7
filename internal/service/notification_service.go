package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/reqctx"
	"github.com/shinyyama/marketchat/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	PreviewLength       = 30
	previewEllipsis     = "..."
	messageTitle        = "New message"
	defaultBulkParallel = 16
)

type NotificationService interface {
	NotifyMessage(ctx context.Context, recipientUID, convID, senderUID, text string) (*model.Notification, error)
	List(ctx context.Context, uid string, unreadOnly bool) ([]model.Notification, int, error)
	MarkRead(ctx context.Context, uid, id string) error
	MarkAllRead(ctx context.Context, uid string) error
	Delete(ctx context.Context, uid, id string) error
	DeleteAll(ctx context.Context, uid string) error
}

type notificationService struct {
	repo         repository.NotificationRepository
	log          *zap.Logger
	bulkParallel int
}

// NewNotificationService builds the fan-out service. bulkParallel bounds how many per-record
// mutations a bulk operation keeps in flight; values below 1 use the default.
func NewNotificationService(repo repository.NotificationRepository, log *zap.Logger, bulkParallel int) NotificationService {
	if bulkParallel < 1 {
		bulkParallel = defaultBulkParallel
	}
	return &notificationService{repo: repo, log: log, bulkParallel: bulkParallel}
}

// Preview truncates text to PreviewLength characters, marking the cut with an ellipsis.
func Preview(text string) string {
	r := []rune(text)
	if len(r) <= PreviewLength {
		return text
	}
	return string(r[:PreviewLength]) + previewEllipsis
}

// NotifyMessage writes one notification per call. Repeated messages are not collapsed.
func (s *notificationService) NotifyMessage(ctx context.Context, recipientUID, convID, senderUID, text string) (*model.Notification, error) {
	if recipientUID == "" {
		return nil, validationError("recipient is required")
	}
	if recipientUID == senderUID {
		return nil, validationError("recipient must differ from sender")
	}
	n := &model.Notification{
		ID:        uuid.NewString(),
		UserUID:   recipientUID,
		Kind:      model.NotificationKindMessage,
		Title:     messageTitle,
		Text:      Preview(text),
		SenderUID: senderUID,
	}
	if convID != "" {
		n.ConversationID = &convID
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, storeErr(err)
	}
	return n, nil
}

func (s *notificationService) List(ctx context.Context, uid string, unreadOnly bool) ([]model.Notification, int, error) {
	if uid == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, uid, unreadOnly)
	if err != nil {
		return nil, 0, storeErr(err)
	}
	return list, model.CountUnread(list), nil
}

func (s *notificationService) MarkRead(ctx context.Context, uid, id string) error {
	if uid == "" || id == "" {
		return validationError("notification id is required")
	}
	return storeErr(s.repo.MarkRead(ctx, uid, id))
}

func (s *notificationService) MarkAllRead(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	unread, err := s.repo.ListByUser(ctx, uid, true)
	if err != nil {
		return storeErr(err)
	}
	return s.each(ctx, "mark all read", unread, func(ctx context.Context, n model.Notification) error {
		return s.repo.MarkRead(ctx, uid, n.ID)
	})
}

func (s *notificationService) Delete(ctx context.Context, uid, id string) error {
	if uid == "" || id == "" {
		return validationError("notification id is required")
	}
	return storeErr(s.repo.Delete(ctx, uid, id))
}

func (s *notificationService) DeleteAll(ctx context.Context, uid string) error {
	if uid == "" {
		return nil
	}
	all, err := s.repo.ListByUser(ctx, uid, false)
	if err != nil {
		return storeErr(err)
	}
	return s.each(ctx, "delete all", all, func(ctx context.Context, n model.Notification) error {
		return s.repo.Delete(ctx, uid, n.ID)
	})
}

// each runs fn for every record concurrently and waits for all of them. There is no
// rollback: records whose mutation succeeded stay mutated when others fail.
func (s *notificationService) each(ctx context.Context, op string, list []model.Notification, fn func(context.Context, model.Notification) error) error {
	var g errgroup.Group
	g.SetLimit(s.bulkParallel)
	errs := make([]error, len(list))
	for i, n := range list {
		g.Go(func() error {
			if err := fn(ctx, n); err != nil {
				errs[i] = storeErr(err)
			}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
		}
	}
	if failed == 0 {
		return nil
	}
	reqctx.Logger(ctx, s.log).Warn("bulk notification update incomplete",
		zap.String("op", op), zap.Int("failed", failed), zap.Int("total", len(list)))
	return &PartialFailureError{Op: op, Failed: failed, Total: len(list), Err: errors.Join(errs...)}
}
