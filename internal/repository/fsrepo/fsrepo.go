// Package fsrepo stores chats, messages, notifications and profiles in Cloud Firestore.
//
// Layout:
//
//	chats/{id}                      conversation with a participants array
//	chats/{id}/messages/{id}
//	users/{uid}
//	users/{uid}/notifications/{id}
//	listings/{id}
package fsrepo

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/marketchat/internal/repository"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	colChats         = "chats"
	colMessages      = "messages"
	colUsers         = "users"
	colNotifications = "notifications"
	colListings      = "listings"
)

// NewStore wires every repository to client. Closing the store closes the client.
func NewStore(client *firestore.Client) *repository.Store {
	return &repository.Store{
		Conversations: &conversationRepository{client: client},
		Messages:      &messageRepository{client: client},
		Notifications: &notificationRepository{client: client},
		Users:         &userRepository{client: client},
		Listings:      &listingRepository{client: client},
		Close:         client.Close,
	}
}

// mapErr turns Firestore status codes into repository errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	switch status.Code(err) {
	case codes.NotFound:
		return repository.ErrNotFound
	case codes.AlreadyExists:
		return repository.ErrAlreadyExists
	}
	return err
}

// watch drains a snapshot iterator, emitting every snapshot decoded by decode. It returns nil
// once ctx is done.
func watch[T any](ctx context.Context, q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error), emit func([]T)) error {
	it := q.Snapshots(ctx)
	defer it.Stop()
	for {
		qs, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}
		docs, err := qs.Documents.GetAll()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		out := make([]T, 0, len(docs))
		for _, d := range docs {
			v, err := decode(d)
			if err != nil {
				return err
			}
			out = append(out, v)
		}
		emit(out)
	}
}

func getAll[T any](ctx context.Context, q firestore.Query, decode func(*firestore.DocumentSnapshot) (T, error)) ([]T, error) {
	docs, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, mapErr(err)
	}
	out := make([]T, 0, len(docs))
	for _, d := range docs {
		v, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
