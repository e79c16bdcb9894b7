package fsrepo

import (
	"context"
	"sort"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/marketchat/internal/model"
)

type conversationRepository struct {
	client *firestore.Client
}

func (r *conversationRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(colChats).Doc(id)
}

func (r *conversationRepository) Create(ctx context.Context, cv *model.Conversation) error {
	wr, err := r.doc(cv.ID).Create(ctx, toChatDoc(cv))
	if err != nil {
		return mapErr(err)
	}
	if cv.CreatedAt.IsZero() {
		cv.CreatedAt = wr.UpdateTime
	}
	return nil
}

func (r *conversationRepository) FindByID(ctx context.Context, id string) (*model.Conversation, error) {
	snap, err := r.doc(id).Get(ctx)
	if err != nil {
		return nil, mapErr(err)
	}
	cv, err := decodeChat(snap)
	if err != nil {
		return nil, err
	}
	return &cv, nil
}

func (r *conversationRepository) FindByParticipantAndListing(ctx context.Context, uid, listingID string) ([]model.Conversation, error) {
	q := r.client.Collection(colChats).
		Where("participants", "array-contains", uid).
		Where("listingId", "==", listingID)
	return getAll(ctx, q, decodeChat)
}

// FindByUser sorts in memory; ordering on lastMessageTime next to array-contains would need
// a composite index.
func (r *conversationRepository) FindByUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	q := r.client.Collection(colChats).Where("participants", "array-contains", uid)
	list, err := getAll(ctx, q, decodeChat)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(list, func(i, j int) bool {
		return lastActivity(list[i]).After(lastActivity(list[j]))
	})
	return list, nil
}

func lastActivity(cv model.Conversation) time.Time {
	if cv.LastMessageAt != nil {
		return *cv.LastMessageAt
	}
	return cv.CreatedAt
}

func (r *conversationRepository) UpdateLastMessage(ctx context.Context, id, text string, at time.Time) error {
	_, err := r.doc(id).Update(ctx, []firestore.Update{
		{Path: "lastMessage", Value: text},
		{Path: "lastMessageTime", Value: at},
	})
	return mapErr(err)
}

func (r *conversationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.doc(id).Delete(ctx, firestore.Exists)
	return mapErr(err)
}
