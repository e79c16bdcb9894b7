package repository

import (
	"context"

	"github.com/shinyyama/marketchat/internal/changefeed"
	"github.com/shinyyama/marketchat/internal/model"
	"gorm.io/gorm"
)

type messageRepository struct {
	db   *gorm.DB
	feed *changefeed.Feed
}

func NewMessageRepository(db *gorm.DB, feed *changefeed.Feed) MessageRepository {
	return &messageRepository{db: db, feed: feed}
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = r.db.NowFunc()
	}
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return err
	}
	r.feed.Publish(changefeed.MessagesTopic(msg.ConversationID))
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID string) ([]model.Message, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var msgs []model.Message
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ?", convID).
		Order("created_at ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *messageRepository) WatchByConversation(ctx context.Context, convID string, emit func([]model.Message)) error {
	load := func(ctx context.Context) ([]model.Message, error) {
		return r.ListByConversation(ctx, convID)
	}
	return changefeed.Watch(ctx, r.feed, changefeed.MessagesTopic(convID), load, emit)
}
