package models

import "time"

// PaymentIntentKind identifies what an intent pays for.
type PaymentIntentKind string

const (
	PaymentKindListing  PaymentIntentKind = "listing"
	PaymentKindFeatured PaymentIntentKind = "featured"
)

// PaymentIntentStatus records the processor-reported outcome. This is not a
// state machine; an intent moves at most once from pending to a terminal
// state as the processor reports it.
type PaymentIntentStatus string

const (
	PaymentIntentPending   PaymentIntentStatus = "pending"
	PaymentIntentCompleted PaymentIntentStatus = "completed"
	PaymentIntentFailed    PaymentIntentStatus = "failed"
)

// PaymentIntent is one attempt to collect a listing or featured fee.
type PaymentIntent struct {
	ID              string              `db:"id" json:"id"`
	UserID          string              `db:"user_id" json:"user_id"`
	ListingID       *string             `db:"listing_id" json:"listing_id,omitempty"`
	AmountCents     int64               `db:"amount_cents" json:"amount_cents"`
	Kind            PaymentIntentKind   `db:"kind" json:"kind"`
	StripeSessionID *string             `db:"stripe_session_id" json:"stripe_session_id,omitempty"`
	Status          PaymentIntentStatus `db:"status" json:"status"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}
