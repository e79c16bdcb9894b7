package model

import (
	"sort"
	"time"
)

type NotificationKind string

const (
	NotificationKindMessage NotificationKind = "message"
	NotificationKindSystem  NotificationKind = "system"
	NotificationKindOther   NotificationKind = "other"
)

type Notification struct {
	ID             string           `gorm:"primaryKey;size:64" json:"id"`
	UserUID        string           `gorm:"column:user_uid;size:128;index;not null" json:"-"`
	Kind           NotificationKind `gorm:"column:kind;size:32;not null" json:"type"`
	Title          string           `gorm:"column:title;size:255" json:"title"`
	Text           string           `gorm:"column:text;type:text" json:"message"`
	Read           bool             `gorm:"column:read;index" json:"read"`
	ConversationID *string          `gorm:"column:conversation_id;size:64;index" json:"chatId,omitempty"`
	SenderUID      string           `gorm:"column:sender_uid;size:128" json:"senderId,omitempty"`
	CreatedAt      time.Time        `gorm:"column:created_at;index" json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}

// SortNotifications orders a feed newest first.
func SortNotifications(list []Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

func CountUnread(list []Notification) int {
	n := 0
	for _, it := range list {
		if !it.Read {
			n++
		}
	}
	return n
}
