package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kenailandsales/land-api/internal/models"
)

var listingColumns = []string{
	"id", "owner_id", "title", "description", "price", "acreage", "location",
	"latitude", "longitude", "zoning", "parcel_number", "road_access",
	"utilities_water", "utilities_electric", "utilities_sewer", "utilities_gas",
	"topography", "land_use_suggestions", "property_tax_annual", "survey_available",
	"images", "video_url", "documents", "status", "payment_status", "featured",
	"featured_until", "views", "created_at", "updated_at", "expires_at",
}

// ListingRepository manages persistence for land listings.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository constructs a ListingRepository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

// applyBrowseFilter composes the browse predicates. Every present filter
// field contributes exactly one conjunctive predicate on top of the implicit
// active-status restriction; absent fields contribute nothing.
func applyBrowseFilter(builder sq.SelectBuilder, filter models.ListingFilter) sq.SelectBuilder {
	builder = builder.Where(sq.Eq{"status": models.ListingStatusActive})

	if filter.MinPrice != nil {
		builder = builder.Where(sq.GtOrEq{"price": *filter.MinPrice})
	}
	if filter.MaxPrice != nil {
		builder = builder.Where(sq.LtOrEq{"price": *filter.MaxPrice})
	}
	if filter.MinAcreage != nil {
		builder = builder.Where(sq.GtOrEq{"acreage": *filter.MinAcreage})
	}
	if filter.Location != "" {
		builder = builder.Where(sq.ILike{"location": "%" + filter.Location + "%"})
	}
	if filter.RoadAccess != nil {
		builder = builder.Where(sq.Eq{"road_access": *filter.RoadAccess})
	}

	return builder
}

// List returns active listings matching the filter, newest first. An empty
// result is not an error; only transport/store failures return one.
func (r *ListingRepository) List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}

	base := sq.Select(listingColumns...).
		From("land_listings").
		PlaceholderFormat(sq.Dollar)
	query, args, err := applyBrowseFilter(base, filter).
		OrderBy("created_at DESC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build browse query: %w", err)
	}

	listings := []models.Listing{}
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list listings: %w", err)
	}

	countBase := sq.Select("COUNT(*)").
		From("land_listings").
		PlaceholderFormat(sq.Dollar)
	countQuery, countArgs, err := applyBrowseFilter(countBase, filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count listings: %w", err)
	}

	return listings, total, nil
}

// FindByID fetches a listing regardless of status.
func (r *ListingRepository) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	query, args, err := sq.Select(listingColumns...).
		From("land_listings").
		Where(sq.Eq{"id": id}).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find query: %w", err)
	}
	var listing models.Listing
	if err := r.db.GetContext(ctx, &listing, query, args...); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListByOwner returns every listing belonging to a user, any status.
func (r *ListingRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error) {
	query, args, err := sq.Select(listingColumns...).
		From("land_listings").
		Where(sq.Eq{"owner_id": ownerID}).
		OrderBy("created_at DESC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build owner query: %w", err)
	}
	listings := []models.Listing{}
	if err := r.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("list owner listings: %w", err)
	}
	return listings, nil
}

// Create inserts a new listing record.
func (r *ListingRepository) Create(ctx context.Context, listing *models.Listing) error {
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now
	const query = `INSERT INTO land_listings (id, owner_id, title, description, price, acreage, location,
        latitude, longitude, zoning, parcel_number, road_access,
        utilities_water, utilities_electric, utilities_sewer, utilities_gas,
        topography, land_use_suggestions, property_tax_annual, survey_available,
        images, video_url, documents, status, payment_status, featured,
        featured_until, views, created_at, updated_at, expires_at)
        VALUES (:id, :owner_id, :title, :description, :price, :acreage, :location,
        :latitude, :longitude, :zoning, :parcel_number, :road_access,
        :utilities_water, :utilities_electric, :utilities_sewer, :utilities_gas,
        :topography, :land_use_suggestions, :property_tax_annual, :survey_available,
        :images, :video_url, :documents, :status, :payment_status, :featured,
        :featured_until, :views, :created_at, :updated_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		return fmt.Errorf("create listing: %w", err)
	}
	return nil
}

// Update modifies the owner-editable fields of an existing listing.
func (r *ListingRepository) Update(ctx context.Context, listing *models.Listing) error {
	listing.UpdatedAt = time.Now().UTC()
	const query = `UPDATE land_listings SET title = :title, description = :description, price = :price,
        acreage = :acreage, location = :location, latitude = :latitude, longitude = :longitude,
        zoning = :zoning, parcel_number = :parcel_number, road_access = :road_access,
        utilities_water = :utilities_water, utilities_electric = :utilities_electric,
        utilities_sewer = :utilities_sewer, utilities_gas = :utilities_gas,
        topography = :topography, land_use_suggestions = :land_use_suggestions,
        property_tax_annual = :property_tax_annual, survey_available = :survey_available,
        video_url = :video_url, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, listing); err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}

// AppendImage attaches an image reference, preserving insertion order.
func (r *ListingRepository) AppendImage(ctx context.Context, id, ref string) error {
	const query = `UPDATE land_listings SET images = array_append(images, $2), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ref, time.Now().UTC()); err != nil {
		return fmt.Errorf("append image: %w", err)
	}
	return nil
}

// AppendDocument attaches a document reference, preserving insertion order.
func (r *ListingRepository) AppendDocument(ctx context.Context, id, ref string) error {
	const query = `UPDATE land_listings SET documents = array_append(documents, $2), updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ref, time.Now().UTC()); err != nil {
		return fmt.Errorf("append document: %w", err)
	}
	return nil
}

// IncrementViews bumps the view counter server-side. The counter is never
// written directly by callers and only ever increases.
func (r *ListingRepository) IncrementViews(ctx context.Context, id string) error {
	const query = `UPDATE land_listings SET views = views + 1 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("increment views: %w", err)
	}
	return nil
}

// MarkPaid records a collected listing fee and exposes the listing in
// browsing. Paid payment status is the precondition for active status.
func (r *ListingRepository) MarkPaid(ctx context.Context, id string) error {
	const query = `UPDATE land_listings SET payment_status = $2, status = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentStatePaid, models.ListingStatusActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark listing paid: %w", err)
	}
	return nil
}

// SetFeatured promotes a listing until the given time.
func (r *ListingRepository) SetFeatured(ctx context.Context, id string, until time.Time) error {
	const query = `UPDATE land_listings SET featured = TRUE, featured_until = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, until, time.Now().UTC()); err != nil {
		return fmt.Errorf("set featured: %w", err)
	}
	return nil
}

// ExpireOverdue marks active listings past their expiry as expired and
// returns how many rows changed.
func (r *ListingRepository) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE land_listings SET status = $2, updated_at = $3 WHERE status = $4 AND expires_at <= $1`
	result, err := r.db.ExecContext(ctx, query, now, models.ListingStatusExpired, now, models.ListingStatusActive)
	if err != nil {
		return 0, fmt.Errorf("expire listings: %w", err)
	}
	return result.RowsAffected()
}

// ClearLapsedFeatured drops the featured flag once featured_until passes.
func (r *ListingRepository) ClearLapsedFeatured(ctx context.Context, now time.Time) (int64, error) {
	const query = `UPDATE land_listings SET featured = false, updated_at = $2 WHERE featured AND featured_until IS NOT NULL AND featured_until <= $1`
	result, err := r.db.ExecContext(ctx, query, now, now)
	if err != nil {
		return 0, fmt.Errorf("clear featured: %w", err)
	}
	return result.RowsAffected()
}
