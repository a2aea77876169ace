package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/kenailandsales/land-api/internal/models"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/export"
	"github.com/kenailandsales/land-api/pkg/format"
)

type listingRepository interface {
	List(ctx context.Context, filter models.ListingFilter) ([]models.Listing, int, error)
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Listing, error)
	Create(ctx context.Context, listing *models.Listing) error
	Update(ctx context.Context, listing *models.Listing) error
	AppendImage(ctx context.Context, id, ref string) error
	AppendDocument(ctx context.Context, id, ref string) error
	IncrementViews(ctx context.Context, id string) error
}

type checkoutStarter interface {
	StartListingCheckout(ctx context.Context, userID string, listing *models.Listing) (*models.CheckoutInfo, error)
}

// CreateListingRequest holds the payload for posting a parcel. Price, acreage
// and annual tax arrive as form strings and are coerced to numbers here.
type CreateListingRequest struct {
	Title              string   `json:"title" validate:"required,max=200"`
	Description        string   `json:"description" validate:"required"`
	Price              string   `json:"price" validate:"required"`
	Acreage            string   `json:"acreage" validate:"required"`
	Location           string   `json:"location" validate:"required"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Zoning             string   `json:"zoning"`
	ParcelNumber       string   `json:"parcel_number"`
	RoadAccess         string   `json:"road_access" validate:"required"`
	UtilitiesWater     bool     `json:"utilities_water"`
	UtilitiesElectric  bool     `json:"utilities_electric"`
	UtilitiesSewer     bool     `json:"utilities_sewer"`
	UtilitiesGas       bool     `json:"utilities_gas"`
	Topography         string   `json:"topography"`
	LandUseSuggestions string   `json:"land_use_suggestions"`
	PropertyTaxAnnual  string   `json:"property_tax_annual"`
	SurveyAvailable    bool     `json:"survey_available"`
	VideoURL           string   `json:"video_url"`
}

// UpdateListingRequest holds the owner-editable fields.
type UpdateListingRequest struct {
	Title              string   `json:"title" validate:"required,max=200"`
	Description        string   `json:"description" validate:"required"`
	Price              string   `json:"price" validate:"required"`
	Acreage            string   `json:"acreage" validate:"required"`
	Location           string   `json:"location" validate:"required"`
	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	Zoning             string   `json:"zoning"`
	ParcelNumber       string   `json:"parcel_number"`
	RoadAccess         string   `json:"road_access" validate:"required"`
	UtilitiesWater     bool     `json:"utilities_water"`
	UtilitiesElectric  bool     `json:"utilities_electric"`
	UtilitiesSewer     bool     `json:"utilities_sewer"`
	UtilitiesGas       bool     `json:"utilities_gas"`
	Topography         string   `json:"topography"`
	LandUseSuggestions string   `json:"land_use_suggestions"`
	PropertyTaxAnnual  string   `json:"property_tax_annual"`
	SurveyAvailable    bool     `json:"survey_available"`
	VideoURL           string   `json:"video_url"`
}

// ListingService handles browsing, posting and managing land listings.
type ListingService struct {
	repo      listingRepository
	payments  checkoutStarter
	validator *validator.Validate
	logger    *zap.Logger
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	duration  time.Duration
}

// NewListingService constructs the listing service. The duration argument is
// how long a paid listing stays live.
func NewListingService(repo listingRepository, payments checkoutStarter, validate *validator.Validate, logger *zap.Logger, metrics *MetricsService, duration time.Duration) *ListingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if duration <= 0 {
		duration = 60 * 24 * time.Hour
	}
	return &ListingService{
		repo:      repo,
		payments:  payments,
		validator: validate,
		logger:    logger,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		duration:  duration,
	}
}

// Browse returns active listings matching the filter, newest first, with
// render-ready display fields. A query failure is reported as unable-to-load;
// an empty page is a normal response.
func (s *ListingService) Browse(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, *models.Pagination, error) {
	listings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrUnableToLoad.Code, appErrors.ErrUnableToLoad.Status, "unable to load listings")
	}

	now := time.Now().UTC()
	details := make([]models.ListingDetail, 0, len(listings))
	for _, l := range listings {
		details = append(details, decorateListing(l, now))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return details, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a single listing with display fields and bumps its view
// counter. The increment is fire-and-forget: a failure is logged and never
// delays or fails the detail response. Owners checking their own listing
// do not count as a view; viewerID is empty for anonymous requests.
func (s *ListingService) Get(ctx context.Context, id, viewerID string) (*models.ListingDetail, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}

	if viewerID == "" || viewerID != listing.OwnerID {
		go func(listingID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.repo.IncrementViews(ctx, listingID); err != nil {
				s.logger.Warn("view increment failed", zap.String("listing_id", listingID), zap.Error(err))
				return
			}
			s.metrics.ListingViewed()
		}(listing.ID)
	}

	detail := decorateListing(*listing, time.Now().UTC())
	return &detail, nil
}

// Create persists a new listing and opens a checkout session for the listing
// fee. The insert happens first: if the payment session cannot be created the
// listing stays saved as unpaid and the caller is told to retry checkout.
func (s *ListingService) Create(ctx context.Context, ownerID string, req CreateListingRequest) (*models.Listing, *models.CheckoutInfo, error) {
	listing, err := s.buildListing(ownerID, req)
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.Create(ctx, listing); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save listing")
	}
	s.metrics.ListingCreated()

	checkout, err := s.payments.StartListingCheckout(ctx, ownerID, listing)
	if err != nil {
		s.logger.Warn("checkout session failed after insert", zap.String("listing_id", listing.ID), zap.Error(err))
		return listing, nil, appErrors.Clone(appErrors.ErrPaymentFailed, "payment failed, listing saved; retry checkout")
	}
	return listing, checkout, nil
}

// RetryCheckout opens a fresh payment session for an unpaid listing.
func (s *ListingService) RetryCheckout(ctx context.Context, userID, listingID string) (*models.CheckoutInfo, error) {
	listing, err := s.ownedListing(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if listing.PaymentStatus == models.PaymentStatePaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "listing fee already paid")
	}
	checkout, err := s.payments.StartListingCheckout(ctx, userID, listing)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrPaymentFailed, "payment failed, please retry")
	}
	return checkout, nil
}

// Mine returns all of a user's listings regardless of status.
func (s *ListingService) Mine(ctx context.Context, ownerID string) ([]models.Listing, error) {
	listings, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listings")
	}
	return listings, nil
}

// UpdateOwn edits a listing on behalf of its owner.
func (s *ListingService) UpdateOwn(ctx context.Context, userID, listingID string, req UpdateListingRequest) (*models.Listing, error) {
	listing, err := s.ownedListing(ctx, userID, listingID)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}

	price, perr := parseAmount("price", req.Price)
	if perr != nil {
		return nil, perr
	}
	acreage, perr := parseAmount("acreage", req.Acreage)
	if perr != nil {
		return nil, perr
	}
	tax, perr := parseOptionalAmount("property_tax_annual", req.PropertyTaxAnnual)
	if perr != nil {
		return nil, perr
	}
	road, err := models.ParseRoadAccess(req.RoadAccess)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	listing.Title = req.Title
	listing.Description = req.Description
	listing.Price = price
	listing.Acreage = acreage
	listing.Location = req.Location
	listing.Latitude = req.Latitude
	listing.Longitude = req.Longitude
	listing.Zoning = optionalString(req.Zoning)
	listing.ParcelNumber = optionalString(req.ParcelNumber)
	listing.RoadAccess = road
	listing.UtilitiesWater = req.UtilitiesWater
	listing.UtilitiesElectric = req.UtilitiesElectric
	listing.UtilitiesSewer = req.UtilitiesSewer
	listing.UtilitiesGas = req.UtilitiesGas
	listing.Topography = req.Topography
	listing.LandUseSuggestions = optionalString(req.LandUseSuggestions)
	listing.PropertyTaxAnnual = tax
	listing.SurveyAvailable = req.SurveyAvailable
	listing.VideoURL = optionalString(req.VideoURL)

	if err := s.repo.Update(ctx, listing); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update listing")
	}
	return listing, nil
}

// AttachImage records an uploaded image reference on an owned listing.
func (s *ListingService) AttachImage(ctx context.Context, userID, listingID, ref string) error {
	if _, err := s.ownedListing(ctx, userID, listingID); err != nil {
		return err
	}
	if err := s.repo.AppendImage(ctx, listingID, ref); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach image")
	}
	return nil
}

// AttachDocument records an uploaded document reference on an owned listing.
func (s *ListingService) AttachDocument(ctx context.Context, userID, listingID, ref string) error {
	if _, err := s.ownedListing(ctx, userID, listingID); err != nil {
		return err
	}
	if err := s.repo.AppendDocument(ctx, listingID, ref); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to attach document")
	}
	return nil
}

// ExportCSV renders a user's listings as a CSV download.
func (s *ListingService) ExportCSV(ctx context.Context, ownerID string) ([]byte, error) {
	listings, err := s.Mine(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	dataset := export.Dataset{
		Headers: []string{"id", "title", "price", "acreage", "location", "road_access", "status", "payment_status", "views", "created_at", "expires_at"},
	}
	for _, l := range listings {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":             l.ID,
			"title":          l.Title,
			"price":          strconv.FormatFloat(l.Price, 'f', -1, 64),
			"acreage":        strconv.FormatFloat(l.Acreage, 'f', -1, 64),
			"location":       l.Location,
			"road_access":    string(l.RoadAccess),
			"status":         string(l.Status),
			"payment_status": string(l.PaymentStatus),
			"views":          strconv.FormatInt(l.Views, 10),
			"created_at":     l.CreatedAt.Format(time.RFC3339),
			"expires_at":     l.ExpiresAt.Format(time.RFC3339),
		})
	}
	data, err := s.csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, nil
}

// PropertySheet renders a printable PDF fact sheet for a listing.
func (s *ListingService) PropertySheet(ctx context.Context, id string) ([]byte, error) {
	listing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}

	now := time.Now().UTC()
	overview := export.SheetSection{
		Title: "Overview",
		Fields: []export.SheetField{
			{Label: "Price", Value: format.Currency(listing.Price)},
			{Label: "Acreage", Value: strconv.FormatFloat(listing.Acreage, 'f', -1, 64) + " acres"},
			{Label: "Location", Value: listing.Location},
			{Label: "Road access", Value: string(listing.RoadAccess)},
			{Label: "Topography", Value: listing.Topography},
			{Label: "Posted", Value: format.AbsoluteDate(listing.CreatedAt)},
		},
	}
	utilities := export.SheetSection{
		Title: "Utilities",
		Fields: []export.SheetField{
			{Label: "Water", Value: yesNo(listing.UtilitiesWater)},
			{Label: "Electric", Value: yesNo(listing.UtilitiesElectric)},
			{Label: "Sewer", Value: yesNo(listing.UtilitiesSewer)},
			{Label: "Gas", Value: yesNo(listing.UtilitiesGas)},
		},
	}
	details := export.SheetSection{
		Title: "Parcel details",
		Fields: []export.SheetField{
			{Label: "Zoning", Value: stringOrDash(listing.Zoning)},
			{Label: "Parcel number", Value: stringOrDash(listing.ParcelNumber)},
			{Label: "Survey available", Value: yesNo(listing.SurveyAvailable)},
		},
	}
	if listing.PropertyTaxAnnual != nil {
		details.Fields = append(details.Fields, export.SheetField{Label: "Annual property tax", Value: format.Currency(*listing.PropertyTaxAnnual)})
	}
	description := export.SheetSection{Title: "Description", Text: listing.Description}

	subtitle := fmt.Sprintf("%s, listed %s", listing.Location, format.RelativeTime(listing.CreatedAt, now))
	data, err := s.pdf.RenderSheet(listing.Title, subtitle, []export.SheetSection{overview, utilities, details, description})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render property sheet")
	}
	return data, nil
}

func (s *ListingService) buildListing(ownerID string, req CreateListingRequest) (*models.Listing, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid listing payload")
	}
	price, perr := parseAmount("price", req.Price)
	if perr != nil {
		return nil, perr
	}
	acreage, perr := parseAmount("acreage", req.Acreage)
	if perr != nil {
		return nil, perr
	}
	tax, perr := parseOptionalAmount("property_tax_annual", req.PropertyTaxAnnual)
	if perr != nil {
		return nil, perr
	}
	road, err := models.ParseRoadAccess(req.RoadAccess)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	now := time.Now().UTC()
	return &models.Listing{
		OwnerID:            ownerID,
		Title:              req.Title,
		Description:        req.Description,
		Price:              price,
		Acreage:            acreage,
		Location:           req.Location,
		Latitude:           req.Latitude,
		Longitude:          req.Longitude,
		Zoning:             optionalString(req.Zoning),
		ParcelNumber:       optionalString(req.ParcelNumber),
		RoadAccess:         road,
		UtilitiesWater:     req.UtilitiesWater,
		UtilitiesElectric:  req.UtilitiesElectric,
		UtilitiesSewer:     req.UtilitiesSewer,
		UtilitiesGas:       req.UtilitiesGas,
		Topography:         req.Topography,
		LandUseSuggestions: optionalString(req.LandUseSuggestions),
		PropertyTaxAnnual:  tax,
		SurveyAvailable:    req.SurveyAvailable,
		Images:             pq.StringArray{},
		VideoURL:           optionalString(req.VideoURL),
		Documents:          pq.StringArray{},
		Status:             models.ListingStatusPending,
		PaymentStatus:      models.PaymentStateUnpaid,
		ExpiresAt:          now.Add(s.duration),
	}, nil
}

func (s *ListingService) ownedListing(ctx context.Context, userID, listingID string) (*models.Listing, error) {
	listing, err := s.repo.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if listing.OwnerID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "listing belongs to another user")
	}
	return listing, nil
}

// decorateListing computes the display fields that depend on wall-clock now.
func decorateListing(l models.Listing, now time.Time) models.ListingDetail {
	detail := models.ListingDetail{
		Listing:       l,
		PriceDisplay:  format.Currency(l.Price),
		PostedAgo:     format.RelativeTime(l.CreatedAt, now),
		PostedDate:    format.AbsoluteDate(l.CreatedAt),
		DaysRemaining: format.DaysRemaining(l.ExpiresAt, now),
	}
	if l.PropertyTaxAnnual != nil {
		detail.AnnualTaxDisplay = format.Currency(*l.PropertyTaxAnnual)
	}
	return detail
}

// parseAmount coerces a form string into a non-negative number. Zero is a
// legal price and acreage.
func parseAmount(field, raw string) (float64, *appErrors.Error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, field+" must be a number")
	}
	if v < 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, field+" must not be negative")
	}
	return v, nil
}

func parseOptionalAmount(field, raw string) (*float64, *appErrors.Error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := parseAmount(field, raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func stringOrDash(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}
