package fsrepo

import (
	"context"
	"errors"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository"
)

type userRepository struct {
	client *firestore.Client
}

func (r *userRepository) FindByID(ctx context.Context, uid string) (*model.User, error) {
	snap, err := r.client.Collection(colUsers).Doc(uid).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var d userDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return &model.User{
		UID:         uid,
		Email:       d.Email,
		DisplayName: d.DisplayName,
		PhotoURL:    d.PhotoURL,
		University:  d.University,
		CreatedAt:   d.CreatedAt,
	}, nil
}

// Upsert merges the profile fields and keeps createdAt from the first write.
func (r *userRepository) Upsert(ctx context.Context, u *model.User) error {
	ref := r.client.Collection(colUsers).Doc(u.UID)
	return mapErr(r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		_, err := tx.Get(ref)
		exists := err == nil
		if err != nil && !errors.Is(mapErr(err), repository.ErrNotFound) {
			return err
		}
		fields := map[string]interface{}{
			"displayName": u.DisplayName,
			"email":       u.Email,
			"photoURL":    u.PhotoURL,
			"university":  u.University,
		}
		if !exists {
			fields["createdAt"] = firestore.ServerTimestamp
		}
		return tx.Set(ref, fields, firestore.MergeAll)
	}))
}

type listingRepository struct {
	client *firestore.Client
}

func (r *listingRepository) FindByID(ctx context.Context, id string) (*model.Listing, error) {
	snap, err := r.client.Collection(colListings).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	var d listingDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	l := d.model(id)
	return &l, nil
}

func (r *listingRepository) Put(ctx context.Context, l *model.Listing) error {
	_, err := r.client.Collection(colListings).Doc(l.ID).Set(ctx, listingDoc{
		Title:     l.Title,
		Category:  l.Category,
		Price:     l.Price,
		SellerUID: l.SellerUID,
		CreatedAt: l.CreatedAt,
	})
	return mapErr(err)
}
