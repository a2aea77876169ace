package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/internal/service"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/response"
)

type listingService interface {
	Browse(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, *models.Pagination, error)
	Get(ctx context.Context, id, viewerID string) (*models.ListingDetail, error)
	Create(ctx context.Context, ownerID string, req service.CreateListingRequest) (*models.Listing, *models.CheckoutInfo, error)
	RetryCheckout(ctx context.Context, userID, listingID string) (*models.CheckoutInfo, error)
	Mine(ctx context.Context, ownerID string) ([]models.Listing, error)
	UpdateOwn(ctx context.Context, userID, listingID string, req service.UpdateListingRequest) (*models.Listing, error)
	ExportCSV(ctx context.Context, ownerID string) ([]byte, error)
	PropertySheet(ctx context.Context, id string) ([]byte, error)
}

// ListingHandler exposes the public browse surface and owner management.
type ListingHandler struct {
	listings listingService
}

// NewListingHandler constructs ListingHandler.
func NewListingHandler(listings listingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// Browse godoc
// @Summary Browse active listings
// @Tags Listings
// @Produce json
// @Param minPrice query number false "Minimum price"
// @Param maxPrice query number false "Maximum price"
// @Param minAcreage query number false "Minimum acreage"
// @Param location query string false "Location substring"
// @Param roadAccess query string false "Road access (paved, gravel, trail, none)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /listings [get]
func (h *ListingHandler) Browse(c *gin.Context) {
	filter, err := parseListingFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	listings, pagination, err := h.listings.Browse(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, pagination)
}

// Get godoc
// @Summary Get listing detail
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Router /listings/{id} [get]
func (h *ListingHandler) Get(c *gin.Context) {
	viewerID := ""
	if claims := claimsFromContext(c); claims != nil {
		viewerID = claims.UserID
	}
	listing, err := h.listings.Get(c.Request.Context(), c.Param("id"), viewerID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Create godoc
// @Summary Post a new listing
// @Description Saves the listing and opens a checkout session for the listing fee.
// @Tags Listings
// @Accept json
// @Produce json
// @Param payload body service.CreateListingRequest true "Listing payload"
// @Success 201 {object} response.Envelope
// @Failure 402 {object} response.Envelope
// @Router /listings [post]
func (h *ListingHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	listing, checkout, err := h.listings.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		// The listing may already be saved when only the payment leg failed;
		// return it so the client can offer a retry.
		if listing != nil {
			appErr := appErrors.FromError(err)
			c.JSON(appErr.Status, response.Envelope{Data: gin.H{"listing": listing}, Error: appErr})
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, gin.H{"listing": listing, "checkout": checkout})
}

// RetryCheckout godoc
// @Summary Open a new checkout session for an unpaid listing
// @Tags Listings
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Router /listings/{id}/checkout [post]
func (h *ListingHandler) RetryCheckout(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	checkout, err := h.listings.RetryCheckout(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkout, nil)
}

// Mine godoc
// @Summary List own listings
// @Tags Listings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /listings/mine [get]
func (h *ListingHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	listings, err := h.listings.Mine(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listings, nil)
}

// Update godoc
// @Summary Update own listing
// @Tags Listings
// @Accept json
// @Produce json
// @Param id path string true "Listing ID"
// @Param payload body service.UpdateListingRequest true "Listing payload"
// @Success 200 {object} response.Envelope
// @Router /listings/{id} [put]
func (h *ListingHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	listing, err := h.listings.UpdateOwn(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// ExportCSV godoc
// @Summary Download own listings as CSV
// @Tags Listings
// @Produce text/csv
// @Success 200 {file} file
// @Router /listings/mine/export.csv [get]
func (h *ListingHandler) ExportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	data, err := h.listings.ExportCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="my-listings.csv"`)
	c.Data(http.StatusOK, "text/csv", data)
}

// PropertySheet godoc
// @Summary Download a printable PDF fact sheet
// @Tags Listings
// @Produce application/pdf
// @Param id path string true "Listing ID"
// @Success 200 {file} file
// @Router /listings/{id}/sheet.pdf [get]
func (h *ListingHandler) PropertySheet(c *gin.Context) {
	data, err := h.listings.PropertySheet(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="property-sheet.pdf"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

func parseListingFilter(c *gin.Context) (models.ListingFilter, error) {
	var filter models.ListingFilter

	if raw := c.Query("minPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "minPrice must be a number")
		}
		filter.MinPrice = &v
	}
	if raw := c.Query("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "maxPrice must be a number")
		}
		filter.MaxPrice = &v
	}
	if raw := c.Query("minAcreage"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, "minAcreage must be a number")
		}
		filter.MinAcreage = &v
	}
	filter.Location = strings.TrimSpace(c.Query("location"))
	if raw := c.Query("roadAccess"); raw != "" {
		road, err := models.ParseRoadAccess(raw)
		if err != nil {
			return filter, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		filter.RoadAccess = &road
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	return filter, nil
}
