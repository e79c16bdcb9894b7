package service

import (
	"context"
	"errors"

	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/reqctx"
	"github.com/shinyyama/marketchat/internal/repository"
	"go.uber.org/zap"
)

const fallbackDisplayName = "User"

type ProfileService interface {
	Get(ctx context.Context, uid string) (*model.User, error)
	// Lookup never fails: a missing or unreadable profile yields a placeholder labelled "User".
	Lookup(ctx context.Context, uid string) model.User
	Upsert(ctx context.Context, u *model.User) error
}

type profileService struct {
	repo repository.UserRepository
	log  *zap.Logger
}

func NewProfileService(repo repository.UserRepository, log *zap.Logger) ProfileService {
	return &profileService{repo: repo, log: log}
}

func (s *profileService) Get(ctx context.Context, uid string) (*model.User, error) {
	if uid == "" {
		return nil, validationError("uid is required")
	}
	u, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		return nil, storeErr(err)
	}
	return u, nil
}

func (s *profileService) Lookup(ctx context.Context, uid string) model.User {
	u, err := s.Get(ctx, uid)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			reqctx.Logger(ctx, s.log).Warn("profile lookup failed", zap.String("profile", uid), zap.Error(err))
		}
		return model.User{UID: uid, DisplayName: fallbackDisplayName}
	}
	if u.DisplayName == "" {
		u.DisplayName = fallbackDisplayName
	}
	return *u
}

func (s *profileService) Upsert(ctx context.Context, u *model.User) error {
	if u == nil || u.UID == "" {
		return validationError("uid is required")
	}
	return storeErr(s.repo.Upsert(ctx, u))
}
