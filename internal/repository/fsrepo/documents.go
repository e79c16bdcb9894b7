package fsrepo

import (
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shinyyama/marketchat/internal/model"
	"github.com/shinyyama/marketchat/internal/repository"
)

type chatDoc struct {
	Participants    []string   `firestore:"participants"`
	BuyerUID        string     `firestore:"buyerId"`
	SellerUID       string     `firestore:"sellerId"`
	ListingID       string     `firestore:"listingId,omitempty"`
	LastMessage     string     `firestore:"lastMessage"`
	LastMessageTime *time.Time `firestore:"lastMessageTime"`
	CreatedAt       time.Time  `firestore:"createdAt,serverTimestamp"`
}

func toChatDoc(cv *model.Conversation) chatDoc {
	return chatDoc{
		Participants:    cv.Participants(),
		BuyerUID:        cv.BuyerUID,
		SellerUID:       cv.SellerUID,
		ListingID:       cv.ListingID,
		LastMessage:     cv.LastMessage,
		LastMessageTime: cv.LastMessageAt,
		CreatedAt:       cv.CreatedAt,
	}
}

func (d chatDoc) model(id string) model.Conversation {
	cv := model.Conversation{
		ID:            id,
		ListingID:     d.ListingID,
		BuyerUID:      d.BuyerUID,
		SellerUID:     d.SellerUID,
		LastMessage:   d.LastMessage,
		LastMessageAt: d.LastMessageTime,
		CreatedAt:     d.CreatedAt,
	}
	// Chats created before buyer/seller were stored only carry the participants array.
	if cv.BuyerUID == "" && cv.SellerUID == "" && len(d.Participants) == 2 {
		cv.BuyerUID, cv.SellerUID = d.Participants[0], d.Participants[1]
	}
	return cv
}

func decodeChat(snap *firestore.DocumentSnapshot) (model.Conversation, error) {
	var d chatDoc
	if !snap.Exists() {
		return model.Conversation{}, repository.ErrNotFound
	}
	if err := snap.DataTo(&d); err != nil {
		return model.Conversation{}, err
	}
	return d.model(snap.Ref.ID), nil
}

type messageDoc struct {
	SenderUID string    `firestore:"senderId"`
	Text      string    `firestore:"text"`
	ImageURL  *string   `firestore:"imageUrl"`
	Timestamp time.Time `firestore:"timestamp,serverTimestamp"`
}

func decodeMessage(snap *firestore.DocumentSnapshot) (model.Message, error) {
	var d messageDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Message{}, err
	}
	return model.Message{
		ID:             snap.Ref.ID,
		ConversationID: snap.Ref.Parent.Parent.ID,
		SenderUID:      d.SenderUID,
		Text:           d.Text,
		ImageURL:       d.ImageURL,
		CreatedAt:      d.Timestamp,
	}, nil
}

type notificationDoc struct {
	Type      string    `firestore:"type"`
	Title     string    `firestore:"title"`
	Message   string    `firestore:"message"`
	Preview   string    `firestore:"preview,omitempty"`
	Read      bool      `firestore:"read"`
	ChatID    *string   `firestore:"chatId"`
	SenderUID string    `firestore:"senderId"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

// messagePrefix starts the display text of message notifications; the bare
// preview is stored alongside it.
const messagePrefix = "New message: "

func toNotificationDoc(n *model.Notification) notificationDoc {
	d := notificationDoc{
		Type:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Text,
		Read:      n.Read,
		ChatID:    n.ConversationID,
		SenderUID: n.SenderUID,
		CreatedAt: n.CreatedAt,
	}
	if n.Kind == model.NotificationKindMessage {
		d.Message = messagePrefix + n.Text
		d.Preview = n.Text
	}
	return d
}

// text recovers the preview, including from documents written before the
// preview field existed.
func (d notificationDoc) text() string {
	if d.Preview != "" {
		return d.Preview
	}
	if d.Type == string(model.NotificationKindMessage) {
		return strings.TrimPrefix(d.Message, messagePrefix)
	}
	return d.Message
}

func decodeNotification(snap *firestore.DocumentSnapshot) (model.Notification, error) {
	var d notificationDoc
	if err := snap.DataTo(&d); err != nil {
		return model.Notification{}, err
	}
	kind := model.NotificationKind(d.Type)
	switch kind {
	case model.NotificationKindMessage, model.NotificationKindSystem:
	default:
		kind = model.NotificationKindOther
	}
	return model.Notification{
		ID:             snap.Ref.ID,
		UserUID:        snap.Ref.Parent.Parent.ID,
		Kind:           kind,
		Title:          d.Title,
		Text:           d.text(),
		Read:           d.Read,
		ConversationID: d.ChatID,
		SenderUID:      d.SenderUID,
		CreatedAt:      d.CreatedAt,
	}, nil
}

type userDoc struct {
	DisplayName string    `firestore:"displayName"`
	Email       string    `firestore:"email"`
	PhotoURL    string    `firestore:"photoURL"`
	University  string    `firestore:"university"`
	CreatedAt   time.Time `firestore:"createdAt,serverTimestamp"`
}

type listingDoc struct {
	Title     string    `firestore:"title"`
	Category  string    `firestore:"category"`
	Price     float64   `firestore:"price"`
	SellerUID string    `firestore:"sellerId"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func (d listingDoc) model(id string) model.Listing {
	return model.Listing{
		ID:        id,
		Title:     d.Title,
		Category:  d.Category,
		Price:     d.Price,
		SellerUID: d.SellerUID,
		CreatedAt: d.CreatedAt,
	}
}
