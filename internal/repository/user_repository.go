package repository

import (
	"context"

	"github.com/shinyyama/marketchat/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) FindByID(ctx context.Context, uid string) (*model.User, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var u model.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (r *userRepository) Upsert(ctx context.Context, u *model.User) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = r.db.NowFunc()
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uid"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "display_name", "photo_url", "university"}),
	}).Create(u).Error
}
