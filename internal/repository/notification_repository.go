package repository

import (
	"context"

	"github.com/shinyyama/marketchat/internal/changefeed"
	"github.com/shinyyama/marketchat/internal/model"
	"gorm.io/gorm"
)

type notificationRepository struct {
	db   *gorm.DB
	feed *changefeed.Feed
}

func NewNotificationRepository(db *gorm.DB, feed *changefeed.Feed) NotificationRepository {
	return &notificationRepository{db: db, feed: feed}
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.db.NowFunc()
	}
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return err
	}
	r.feed.Publish(changefeed.NotificationsTopic(n.UserUID))
	return nil
}

func (r *notificationRepository) ListByUser(ctx context.Context, uid string, unreadOnly bool) ([]model.Notification, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Notification
	q := r.db.WithContext(ctx).Model(&model.Notification{}).Where("user_uid = ?", uid)
	if unreadOnly {
		q = q.Where("`read` = ?", false)
	}
	if err := q.Order("created_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, uid, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_uid = ?", id, uid).
		Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// MySQL reports 0 affected rows for an unchanged value too.
		var cnt int64
		if err := r.db.WithContext(ctx).Model(&model.Notification{}).
			Where("id = ? AND user_uid = ?", id, uid).Count(&cnt).Error; err != nil {
			return err
		}
		if cnt == 0 {
			return ErrNotFound
		}
		return nil
	}
	r.feed.Publish(changefeed.NotificationsTopic(uid))
	return nil
}

func (r *notificationRepository) Delete(ctx context.Context, uid, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_uid = ?", id, uid).
		Delete(&model.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	r.feed.Publish(changefeed.NotificationsTopic(uid))
	return nil
}

func (r *notificationRepository) WatchByUser(ctx context.Context, uid string, emit func([]model.Notification)) error {
	load := func(ctx context.Context) ([]model.Notification, error) {
		return r.ListByUser(ctx, uid, false)
	}
	return changefeed.Watch(ctx, r.feed, changefeed.NotificationsTopic(uid), load, emit)
}
