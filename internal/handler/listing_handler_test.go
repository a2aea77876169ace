package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenailandsales/land-api/internal/middleware"
	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/internal/service"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
)

type listingServiceMock struct {
	browseResp    []models.ListingDetail
	browseErr     error
	lastFilter    models.ListingFilter
	getResp       *models.ListingDetail
	getErr        error
	lastViewer    string
	createListing *models.Listing
	createInfo    *models.CheckoutInfo
	createErr     error
	retryInfo     *models.CheckoutInfo
	retryErr      error
	mineResp      []models.Listing
	updateResp    *models.Listing
	updateErr     error
	csvResp       []byte
	sheetResp     []byte
}

func (m *listingServiceMock) Browse(ctx context.Context, filter models.ListingFilter) ([]models.ListingDetail, *models.Pagination, error) {
	m.lastFilter = filter
	if m.browseErr != nil {
		return nil, nil, m.browseErr
	}
	return m.browseResp, &models.Pagination{Page: 1, PageSize: 20, TotalCount: len(m.browseResp)}, nil
}

func (m *listingServiceMock) Get(ctx context.Context, id, viewerID string) (*models.ListingDetail, error) {
	m.lastViewer = viewerID
	return m.getResp, m.getErr
}

func (m *listingServiceMock) Create(ctx context.Context, ownerID string, req service.CreateListingRequest) (*models.Listing, *models.CheckoutInfo, error) {
	return m.createListing, m.createInfo, m.createErr
}

func (m *listingServiceMock) RetryCheckout(ctx context.Context, userID, listingID string) (*models.CheckoutInfo, error) {
	return m.retryInfo, m.retryErr
}

func (m *listingServiceMock) Mine(ctx context.Context, ownerID string) ([]models.Listing, error) {
	return m.mineResp, nil
}

func (m *listingServiceMock) UpdateOwn(ctx context.Context, userID, listingID string, req service.UpdateListingRequest) (*models.Listing, error) {
	return m.updateResp, m.updateErr
}

func (m *listingServiceMock) ExportCSV(ctx context.Context, ownerID string) ([]byte, error) {
	return m.csvResp, nil
}

func (m *listingServiceMock) PropertySheet(ctx context.Context, id string) ([]byte, error) {
	return m.sheetResp, nil
}

func testContext(t *testing.T, method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func TestListingHandlerBrowseParsesFilters(t *testing.T) {
	mockSvc := &listingServiceMock{}
	handler := NewListingHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/listings?minPrice=50000&roadAccess=gravel&location=kenai&page=2&limit=10", nil)
	handler.Browse(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastFilter.MinPrice)
	assert.Equal(t, 50000.0, *mockSvc.lastFilter.MinPrice)
	assert.Nil(t, mockSvc.lastFilter.MaxPrice)
	require.NotNil(t, mockSvc.lastFilter.RoadAccess)
	assert.Equal(t, models.RoadAccessGravel, *mockSvc.lastFilter.RoadAccess)
	assert.Equal(t, "kenai", mockSvc.lastFilter.Location)
	assert.Equal(t, 2, mockSvc.lastFilter.Page)
	assert.Equal(t, 10, mockSvc.lastFilter.PageSize)
}

func TestListingHandlerBrowseRejectsBadRoadAccess(t *testing.T) {
	handler := NewListingHandler(&listingServiceMock{})

	c, w := testContext(t, http.MethodGet, "/listings?roadAccess=helicopter", nil)
	handler.Browse(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListingHandlerBrowseUnableToLoad(t *testing.T) {
	mockSvc := &listingServiceMock{browseErr: appErrors.ErrUnableToLoad}
	handler := NewListingHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/listings", nil)
	handler.Browse(c)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "UNABLE_TO_LOAD")
}

func TestListingHandlerBrowseEmptyIsOK(t *testing.T) {
	handler := NewListingHandler(&listingServiceMock{})

	c, w := testContext(t, http.MethodGet, "/listings", nil)
	handler.Browse(c)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListingHandlerCreateRequiresAuth(t *testing.T) {
	handler := NewListingHandler(&listingServiceMock{})

	c, w := testContext(t, http.MethodPost, "/listings", []byte(`{}`))
	handler.Create(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListingHandlerCreateSuccess(t *testing.T) {
	mockSvc := &listingServiceMock{
		createListing: &models.Listing{ID: "l1"},
		createInfo:    &models.CheckoutInfo{SessionID: "cs_test", URL: "https://checkout.stripe.com/cs_test"},
	}
	handler := NewListingHandler(mockSvc)

	body, _ := json.Marshal(map[string]string{"title": "Parcel"})
	c, w := testContext(t, http.MethodPost, "/listings", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	handler.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "cs_test")
}

func TestListingHandlerCreatePaymentFailureKeepsListing(t *testing.T) {
	mockSvc := &listingServiceMock{
		createListing: &models.Listing{ID: "l1"},
		createErr:     appErrors.Clone(appErrors.ErrPaymentFailed, "payment failed, listing saved; retry checkout"),
	}
	handler := NewListingHandler(mockSvc)

	body, _ := json.Marshal(map[string]string{"title": "Parcel"})
	c, w := testContext(t, http.MethodPost, "/listings", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	handler.Create(c)

	require.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Contains(t, w.Body.String(), "PAYMENT_FAILED")
	// Saved listing is echoed back so the client can retry checkout.
	assert.Contains(t, w.Body.String(), `"l1"`)
}

func TestListingHandlerGetNotFound(t *testing.T) {
	mockSvc := &listingServiceMock{getErr: appErrors.Clone(appErrors.ErrNotFound, "listing not found")}
	handler := NewListingHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/listings/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListingHandlerGetPassesViewer(t *testing.T) {
	mockSvc := &listingServiceMock{getResp: &models.ListingDetail{Listing: models.Listing{ID: "l1"}}}
	handler := NewListingHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/listings/l1", nil)
	c.Params = gin.Params{{Key: "id", Value: "l1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", mockSvc.lastViewer)
}

func TestListingHandlerExportCSV(t *testing.T) {
	mockSvc := &listingServiceMock{csvResp: []byte("id,title\n")}
	handler := NewListingHandler(mockSvc)

	c, w := testContext(t, http.MethodGet, "/listings/mine/export.csv", nil)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1"})
	handler.ExportCSV(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}
