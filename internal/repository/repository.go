package repository

import (
	"context"
	"errors"
	"time"

	"github.com/shinyyama/marketchat/internal/model"
)

var (
	ErrDBNotReady    = errors.New("database not initialized")
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type ConversationRepository interface {
	// Create fails with ErrAlreadyExists when cv.ID is taken.
	Create(ctx context.Context, cv *model.Conversation) error
	FindByID(ctx context.Context, id string) (*model.Conversation, error)
	FindByParticipantAndListing(ctx context.Context, uid, listingID string) ([]model.Conversation, error)
	// FindByUser returns the user's conversations, most recent activity first.
	FindByUser(ctx context.Context, uid string) ([]model.Conversation, error)
	UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error
	// Delete removes the conversation only. Its messages are left in place.
	Delete(ctx context.Context, id string) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *model.Message) error
	ListByConversation(ctx context.Context, convID string) ([]model.Message, error)
	// WatchByConversation emits the full message set now and after every change until ctx
	// is done. It returns nil on cancellation and an error when the stream breaks.
	WatchByConversation(ctx context.Context, convID string, emit func([]model.Message)) error
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByUser(ctx context.Context, uid string, unreadOnly bool) ([]model.Notification, error)
	MarkRead(ctx context.Context, uid, id string) error
	Delete(ctx context.Context, uid, id string) error
	// WatchByUser emits the user's full feed, newest first. Same contract as
	// MessageRepository.WatchByConversation.
	WatchByUser(ctx context.Context, uid string, emit func([]model.Notification)) error
}

type UserRepository interface {
	FindByID(ctx context.Context, uid string) (*model.User, error)
	Upsert(ctx context.Context, u *model.User) error
}

type ListingRepository interface {
	FindByID(ctx context.Context, id string) (*model.Listing, error)
}

// Store bundles one backend's repositories.
type Store struct {
	Conversations ConversationRepository
	Messages      MessageRepository
	Notifications NotificationRepository
	Users         UserRepository
	Listings      ListingRepository
	Close         func() error
}

// ListingSeeder is implemented by listing repositories that can write demo listings.
type ListingSeeder interface {
	Put(ctx context.Context, l *model.Listing) error
}
