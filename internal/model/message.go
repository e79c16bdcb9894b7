package model

import (
	"sort"
	"time"
)

type Message struct {
	ID             string    `gorm:"primaryKey;size:64" json:"id"`
	ConversationID string    `gorm:"column:conversation_id;size:64;index" json:"conversationId"`
	SenderUID      string    `gorm:"column:sender_uid;size:128;index" json:"senderUid"`
	Text           string    `gorm:"column:text;type:text" json:"text"`
	ImageURL       *string   `gorm:"column:image_url;size:512" json:"imageUrl,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at;index" json:"createdAt"`
}

func (Message) TableName() string {
	return "messages"
}

// SortMessages orders msgs by timestamp ascending. Equal timestamps keep their arrival order.
func SortMessages(msgs []Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
