package repository

import (
	"github.com/shinyyama/marketchat/internal/changefeed"
	"gorm.io/gorm"
)

// NewStore wires the MySQL-backed repositories around one change feed.
func NewStore(db *gorm.DB, feed *changefeed.Feed) *Store {
	return &Store{
		Conversations: NewConversationRepository(db),
		Messages:      NewMessageRepository(db, feed),
		Notifications: NewNotificationRepository(db, feed),
		Users:         NewUserRepository(db),
		Listings:      NewListingRepository(db),
		Close: func() error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
}
