package fsrepo

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/marketchat/internal/model"
)

type notificationRepository struct {
	client *firestore.Client
}

func (r *notificationRepository) col(uid string) *firestore.CollectionRef {
	return r.client.Collection(colUsers).Doc(uid).Collection(colNotifications)
}

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	ref := r.col(n.UserUID).NewDoc()
	if n.ID != "" {
		ref = r.col(n.UserUID).Doc(n.ID)
	}
	wr, err := ref.Create(ctx, toNotificationDoc(n))
	if err != nil {
		return mapErr(err)
	}
	n.ID = ref.ID
	if n.CreatedAt.IsZero() {
		n.CreatedAt = wr.UpdateTime
	}
	return nil
}

func (r *notificationRepository) feedQuery(uid string, unreadOnly bool) firestore.Query {
	q := r.col(uid).OrderBy("createdAt", firestore.Desc)
	if unreadOnly {
		q = q.Where("read", "==", false)
	}
	return q
}

func (r *notificationRepository) ListByUser(ctx context.Context, uid string, unreadOnly bool) ([]model.Notification, error) {
	return getAll(ctx, r.feedQuery(uid, unreadOnly), decodeNotification)
}

func (r *notificationRepository) MarkRead(ctx context.Context, uid, id string) error {
	_, err := r.col(uid).Doc(id).Update(ctx, []firestore.Update{{Path: "read", Value: true}})
	return mapErr(err)
}

func (r *notificationRepository) Delete(ctx context.Context, uid, id string) error {
	_, err := r.col(uid).Doc(id).Delete(ctx, firestore.Exists)
	return mapErr(err)
}

func (r *notificationRepository) WatchByUser(ctx context.Context, uid string, emit func([]model.Notification)) error {
	return watch(ctx, r.feedQuery(uid, false), decodeNotification, emit)
}
