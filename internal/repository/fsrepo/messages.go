package fsrepo

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/marketchat/internal/model"
)

type messageRepository struct {
	client *firestore.Client
}

func (r *messageRepository) col(convID string) *firestore.CollectionRef {
	return r.client.Collection(colChats).Doc(convID).Collection(colMessages)
}

func (r *messageRepository) Create(ctx context.Context, msg *model.Message) error {
	ref := r.col(msg.ConversationID).Doc(msg.ID)
	wr, err := ref.Create(ctx, messageDoc{
		SenderUID: msg.SenderUID,
		Text:      msg.Text,
		ImageURL:  msg.ImageURL,
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		return mapErr(err)
	}
	if msg.CreatedAt.IsZero() {
		// The server timestamp equals the commit time of a single-document write.
		msg.CreatedAt = wr.UpdateTime
	}
	return nil
}

func (r *messageRepository) ListByConversation(ctx context.Context, convID string) ([]model.Message, error) {
	msgs, err := getAll(ctx, r.col(convID).OrderBy("timestamp", firestore.Asc), decodeMessage)
	if err != nil {
		return nil, err
	}
	model.SortMessages(msgs)
	return msgs, nil
}

func (r *messageRepository) WatchByConversation(ctx context.Context, convID string, emit func([]model.Message)) error {
	return watch(ctx, r.col(convID).OrderBy("timestamp", firestore.Asc), decodeMessage, emit)
}
