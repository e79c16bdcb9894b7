package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/marketchat/internal/model"
	"gorm.io/gorm"
)

type conversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if cv.CreatedAt.IsZero() {
		cv.CreatedAt = r.db.NowFunc()
	}
	if err := r.db.WithContext(ctx).Create(cv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var cv model.Conversation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cv).Error; err != nil {
		return nil, notFound(err)
	}
	return &cv, nil
}

func (r *conversationRepository) FindByParticipantAndListing(ctx context.Context, uid, listingID string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("listing_id = ? AND (buyer_uid = ? OR seller_uid = ?)", listingID, uid, uid).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var list []model.Conversation
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ? OR buyer_uid = ?", uid, uid).
		Order("last_message_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *conversationRepository) UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).
		Model(&model.Conversation{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_message":    text,
			"last_message_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Conversation{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
