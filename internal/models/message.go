package models

import "time"

// Message is a buyer-to-seller note attached to a listing.
type Message struct {
	ID         string    `db:"id" json:"id"`
	ListingID  string    `db:"listing_id" json:"listing_id"`
	FromUserID string    `db:"from_user_id" json:"from_user_id"`
	ToUserID   string    `db:"to_user_id" json:"to_user_id"`
	Body       string    `db:"body" json:"body"`
	Read       bool      `db:"read" json:"read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
