package repository

import (
	"context"

	"github.com/shinyyama/marketchat/internal/model"
	"gorm.io/gorm"
)

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	if r.db == nil {
		return nil, ErrDBNotReady
	}
	var l model.Listing
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&l).Error; err != nil {
		return nil, notFound(err)
	}
	return &l, nil
}

func (r *listingRepository) Put(ctx context.Context, l *model.Listing) error {
	if r.db == nil {
		return ErrDBNotReady
	}
	return r.db.WithContext(ctx).Save(l).Error
}
