package model

import "time"

// User is the profile projection stored next to the auth identity.
type User struct {
	UID         string    `gorm:"column:uid;primaryKey;size:128" json:"uid"`
	Email       string    `gorm:"column:email;size:255" json:"email,omitempty"`
	DisplayName string    `gorm:"column:display_name;size:255" json:"displayName"`
	PhotoURL    string    `gorm:"column:photo_url;size:512" json:"photoURL,omitempty"`
	University  string    `gorm:"column:university;size:255" json:"university,omitempty"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (User) TableName() string {
	return "users"
}
