package model

import (
	"strconv"
	"time"
)

// Listing is the read-only slice of a marketplace listing that chat needs for headers and
// opening messages.
type Listing struct {
	ID        string    `gorm:"primaryKey;size:64" json:"id"`
	Title     string    `gorm:"size:120;not null" json:"title"`
	Category  string    `gorm:"size:64" json:"category"`
	Price     float64   `gorm:"not null" json:"price"`
	SellerUID string    `gorm:"column:seller_uid;size:128;index" json:"sellerId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (Listing) TableName() string {
	return "listings"
}

// PriceLabel formats the price without trailing zeros: 450, 499.5.
func (l Listing) PriceLabel() string {
	return strconv.FormatFloat(l.Price, 'f', -1, 64)
}
