package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenailandsales/land-api/internal/models"
)

func newListingMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func listingRows(ids ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows(listingColumns)
	now := time.Now().UTC()
	for _, id := range ids {
		rows.AddRow(id, "owner-1", "40 Acres Kenai", "Wooded parcel", 60000.0, 40.0, "Kenai, AK",
			nil, nil, nil, nil, "gravel",
			true, false, false, false,
			"wooded", nil, nil, false,
			"{}", nil, "{}", "active", "paid", false,
			nil, 3, now, now, now.Add(60*24*time.Hour))
	}
	return rows
}

func TestListingRepositoryListNoFilters(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM land_listings WHERE status = \$1 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("active").
		WillReturnRows(listingRows("l1"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM land_listings WHERE status = \$1`).
		WithArgs("active").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	listings, total, err := repo.List(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Len(t, listings, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryListComposedFilters(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	minPrice := 50000.0
	road := models.RoadAccessGravel
	filter := models.ListingFilter{MinPrice: &minPrice, RoadAccess: &road}

	mock.ExpectQuery(`SELECT .+ FROM land_listings WHERE status = \$1 AND price >= \$2 AND road_access = \$3 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("active", minPrice, "gravel").
		WillReturnRows(listingRows("l2"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM land_listings WHERE status = \$1 AND price >= \$2 AND road_access = \$3`).
		WithArgs("active", minPrice, "gravel").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	listings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, 1, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryListInvertedPriceRange(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	// Both bounds are applied as-is; min > max simply matches nothing.
	minPrice := 90000.0
	maxPrice := 50000.0
	filter := models.ListingFilter{MinPrice: &minPrice, MaxPrice: &maxPrice}

	mock.ExpectQuery(`SELECT .+ FROM land_listings WHERE status = \$1 AND price >= \$2 AND price <= \$3 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("active", minPrice, maxPrice).
		WillReturnRows(listingRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM land_listings WHERE status = \$1 AND price >= \$2 AND price <= \$3`).
		WithArgs("active", minPrice, maxPrice).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	listings, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Equal(t, 0, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryListLocationSubstring(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM land_listings WHERE status = \$1 AND location ILIKE \$2 ORDER BY created_at DESC LIMIT 20 OFFSET 0`).
		WithArgs("active", "%kenai%").
		WillReturnRows(listingRows("l3"))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM land_listings WHERE status = \$1 AND location ILIKE \$2`).
		WithArgs("active", "%kenai%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	_, _, err := repo.List(context.Background(), models.ListingFilter{Location: "kenai"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryListEmptyResultIsNotAnError(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM land_listings WHERE status = \$1`).
		WillReturnRows(listingRows())
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM land_listings WHERE status = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	listings, total, err := repo.List(context.Background(), models.ListingFilter{})
	require.NoError(t, err)
	assert.Empty(t, listings)
	assert.Equal(t, 0, total)
}

func TestListingRepositoryListStoreFailure(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM land_listings WHERE status = \$1`).
		WillReturnError(errors.New("connection refused"))

	_, _, err := repo.List(context.Background(), models.ListingFilter{})
	require.Error(t, err)
}

func TestListingRepositoryCreate(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectExec("INSERT INTO land_listings").
		WillReturnResult(sqlmock.NewResult(1, 1))

	listing := &models.Listing{
		OwnerID:       "owner-1",
		Title:         "40 Acres Kenai",
		Description:   "Wooded parcel",
		Price:         60000,
		Acreage:       40,
		Location:      "Kenai, AK",
		RoadAccess:    models.RoadAccessGravel,
		Topography:    "wooded",
		Status:        models.ListingStatusPending,
		PaymentStatus: models.PaymentStateUnpaid,
		ExpiresAt:     time.Now().UTC().Add(60 * 24 * time.Hour),
	}
	err := repo.Create(context.Background(), listing)
	require.NoError(t, err)
	assert.NotEmpty(t, listing.ID)
	assert.False(t, listing.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryIncrementViews(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectExec(`UPDATE land_listings SET views = views \+ 1 WHERE id = \$1`).
		WithArgs("l1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.IncrementViews(context.Background(), "l1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryMarkPaid(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	mock.ExpectExec(`UPDATE land_listings SET payment_status = \$2, status = \$3, updated_at = \$4 WHERE id = \$1`).
		WithArgs("l1", "paid", "active", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkPaid(context.Background(), "l1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListingRepositoryExpireOverdue(t *testing.T) {
	db, mock, cleanup := newListingMock(t)
	defer cleanup()
	repo := NewListingRepository(db)

	now := time.Now().UTC()
	mock.ExpectExec(`UPDATE land_listings SET status = \$2, updated_at = \$3 WHERE status = \$4 AND expires_at <= \$1`).
		WithArgs(now, "expired", now, "active").
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.ExpireOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
