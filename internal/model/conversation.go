package model

import "time"

type Conversation struct {
	ID            string     `gorm:"primaryKey;size:64" json:"id"`
	ListingID     string     `gorm:"column:listing_id;size:64;index" json:"listingId,omitempty"`
	BuyerUID      string     `gorm:"column:buyer_uid;size:128;index" json:"buyerUid"`
	SellerUID     string     `gorm:"column:seller_uid;size:128;index" json:"sellerUid"`
	LastMessage   string     `gorm:"column:last_message;type:text" json:"lastMessage"`
	LastMessageAt *time.Time `gorm:"column:last_message_at;index" json:"lastMessageAt,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at" json:"createdAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// Participants returns both participant uids. The pair is unordered.
func (c Conversation) Participants() []string {
	return []string{c.BuyerUID, c.SellerUID}
}

func (c Conversation) HasParticipant(uid string) bool {
	return uid != "" && (c.BuyerUID == uid || c.SellerUID == uid)
}

// Partner returns the participant that is not uid, or "" when uid is not a participant.
func (c Conversation) Partner(uid string) string {
	switch uid {
	case c.BuyerUID:
		return c.SellerUID
	case c.SellerUID:
		return c.BuyerUID
	}
	return ""
}
