package models

import (
	"fmt"
	"time"

	"github.com/lib/pq"
)

// RoadAccess is the closed enumeration of physical access quality to a parcel.
type RoadAccess string

const (
	RoadAccessPaved  RoadAccess = "paved"
	RoadAccessGravel RoadAccess = "gravel"
	RoadAccessTrail  RoadAccess = "trail"
	RoadAccessNone   RoadAccess = "none"
)

// ParseRoadAccess rejects values outside the enumeration at construction so
// invalid strings never reach a query predicate.
func ParseRoadAccess(raw string) (RoadAccess, error) {
	switch RoadAccess(raw) {
	case RoadAccessPaved, RoadAccessGravel, RoadAccessTrail, RoadAccessNone:
		return RoadAccess(raw), nil
	}
	return "", fmt.Errorf("invalid road access %q", raw)
}

// ListingStatus models the listing lifecycle.
type ListingStatus string

const (
	ListingStatusPending ListingStatus = "pending"
	ListingStatusActive  ListingStatus = "active"
	ListingStatusSold    ListingStatus = "sold"
	ListingStatusExpired ListingStatus = "expired"
)

// ParseListingStatus validates a raw status value.
func ParseListingStatus(raw string) (ListingStatus, error) {
	switch ListingStatus(raw) {
	case ListingStatusPending, ListingStatusActive, ListingStatusSold, ListingStatusExpired:
		return ListingStatus(raw), nil
	}
	return "", fmt.Errorf("invalid listing status %q", raw)
}

// PaymentState tracks whether the listing fee has been collected. A listing
// is only exposed in browsing once paid and activated.
type PaymentState string

const (
	PaymentStateUnpaid PaymentState = "unpaid"
	PaymentStatePaid   PaymentState = "paid"
)

// Listing is a land parcel offered for sale, the system's central entity.
type Listing struct {
	ID      string `db:"id" json:"id"`
	OwnerID string `db:"owner_id" json:"owner_id"`

	Title       string  `db:"title" json:"title"`
	Description string  `db:"description" json:"description"`
	Price       float64 `db:"price" json:"price"`
	Acreage     float64 `db:"acreage" json:"acreage"`
	Location    string  `db:"location" json:"location"`

	Latitude  *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64 `db:"longitude" json:"longitude,omitempty"`

	Zoning             *string    `db:"zoning" json:"zoning,omitempty"`
	ParcelNumber       *string    `db:"parcel_number" json:"parcel_number,omitempty"`
	RoadAccess         RoadAccess `db:"road_access" json:"road_access"`
	UtilitiesWater     bool       `db:"utilities_water" json:"utilities_water"`
	UtilitiesElectric  bool       `db:"utilities_electric" json:"utilities_electric"`
	UtilitiesSewer     bool       `db:"utilities_sewer" json:"utilities_sewer"`
	UtilitiesGas       bool       `db:"utilities_gas" json:"utilities_gas"`
	Topography         string     `db:"topography" json:"topography"`
	LandUseSuggestions *string    `db:"land_use_suggestions" json:"land_use_suggestions,omitempty"`
	PropertyTaxAnnual  *float64   `db:"property_tax_annual" json:"property_tax_annual,omitempty"`
	SurveyAvailable    bool       `db:"survey_available" json:"survey_available"`

	Images    pq.StringArray `db:"images" json:"images"`
	VideoURL  *string        `db:"video_url" json:"video_url,omitempty"`
	Documents pq.StringArray `db:"documents" json:"documents"`

	Status        ListingStatus `db:"status" json:"status"`
	PaymentStatus PaymentState  `db:"payment_status" json:"payment_status"`
	Featured      bool          `db:"featured" json:"featured"`
	FeaturedUntil *time.Time    `db:"featured_until" json:"featured_until,omitempty"`

	// Views is mutated only by the store-side increment procedure.
	Views     int64     `db:"views" json:"views"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// ListingFilter is the ephemeral, session-scoped set of browse predicates.
// Nil/empty fields contribute no predicate; browsing is always restricted to
// active listings ordered newest first.
type ListingFilter struct {
	MinPrice   *float64
	MaxPrice   *float64
	MinAcreage *float64
	Location   string
	RoadAccess *RoadAccess
	Page       int
	PageSize   int
}

// ListingDetail augments a listing with render-ready derived values. The
// derived fields depend on wall-clock now and are recomputed per request.
type ListingDetail struct {
	Listing
	PriceDisplay     string `json:"price_display"`
	PostedAgo        string `json:"posted_ago"`
	PostedDate       string `json:"posted_date"`
	DaysRemaining    int    `json:"days_remaining"`
	AnnualTaxDisplay string `json:"annual_tax_display,omitempty"`
}

// CheckoutInfo carries the processor redirect for a newly created listing.
type CheckoutInfo struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}
