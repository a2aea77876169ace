package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/pkg/config"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/payments"
)

type mockPaymentRepo struct {
	intents   map[string]models.PaymentIntent
	createErr error
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{intents: map[string]models.PaymentIntent{}}
}

func (m *mockPaymentRepo) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if m.createErr != nil {
		return m.createErr
	}
	if intent.ID == "" {
		intent.ID = "intent-1"
	}
	if intent.Status == "" {
		intent.Status = models.PaymentIntentPending
	}
	m.intents[intent.ID] = *intent
	return nil
}

func (m *mockPaymentRepo) FindByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	if i, ok := m.intents[id]; ok {
		return &i, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentRepo) SetStripeSession(ctx context.Context, id, sessionID string) error {
	i := m.intents[id]
	i.StripeSessionID = &sessionID
	m.intents[id] = i
	return nil
}

func (m *mockPaymentRepo) MarkCompleted(ctx context.Context, id string) (bool, error) {
	i, ok := m.intents[id]
	if !ok || i.Status != models.PaymentIntentPending {
		return false, nil
	}
	i.Status = models.PaymentIntentCompleted
	m.intents[id] = i
	return true, nil
}

func (m *mockPaymentRepo) MarkFailed(ctx context.Context, id string) error {
	i := m.intents[id]
	i.Status = models.PaymentIntentFailed
	m.intents[id] = i
	return nil
}

func (m *mockPaymentRepo) ListByUser(ctx context.Context, userID string) ([]models.PaymentIntent, error) {
	out := []models.PaymentIntent{}
	for _, i := range m.intents {
		if i.UserID == userID {
			out = append(out, i)
		}
	}
	return out, nil
}

type mockPaymentListings struct {
	listings map[string]models.Listing
	paid     []string
	featured map[string]time.Time
}

func newMockPaymentListings() *mockPaymentListings {
	return &mockPaymentListings{listings: map[string]models.Listing{}, featured: map[string]time.Time{}}
}

func (m *mockPaymentListings) FindByID(ctx context.Context, id string) (*models.Listing, error) {
	if l, ok := m.listings[id]; ok {
		return &l, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPaymentListings) MarkPaid(ctx context.Context, id string) error {
	m.paid = append(m.paid, id)
	return nil
}

func (m *mockPaymentListings) SetFeatured(ctx context.Context, id string, until time.Time) error {
	m.featured[id] = until
	return nil
}

type mockProcessor struct {
	sessionErr error
	event      *payments.WebhookEvent
	parseErr   error
	lastParams payments.CheckoutParams
}

func (m *mockProcessor) CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error) {
	m.lastParams = p
	if m.sessionErr != nil {
		return nil, m.sessionErr
	}
	return &payments.CheckoutSession{ID: "cs_test", URL: "https://checkout.stripe.com/cs_test"}, nil
}

func (m *mockProcessor) ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error) {
	if m.parseErr != nil {
		return nil, m.parseErr
	}
	return m.event, nil
}

func listingFeeConfig() config.ListingsConfig {
	return config.ListingsConfig{FeeCents: 1000, FeaturedFeeCents: 2500, Duration: 60 * 24 * time.Hour}
}

func TestPaymentServiceStartListingCheckout(t *testing.T) {
	repo := newMockPaymentRepo()
	processor := &mockProcessor{}
	svc := NewPaymentService(repo, newMockPaymentListings(), processor, nil, nil, listingFeeConfig())

	listing := &models.Listing{ID: "l1", Title: "Parcel"}
	info, err := svc.StartListingCheckout(context.Background(), "u1", listing)
	require.NoError(t, err)
	assert.Equal(t, "cs_test", info.SessionID)

	assert.Equal(t, int64(1000), processor.lastParams.AmountCents)
	assert.Equal(t, "l1", processor.lastParams.ReferenceID)
	assert.Equal(t, payments.KindListing, processor.lastParams.Kind)

	intent := repo.intents[processor.lastParams.IntentID]
	assert.Equal(t, models.PaymentIntentPending, intent.Status)
	require.NotNil(t, intent.StripeSessionID)
	assert.Equal(t, "cs_test", *intent.StripeSessionID)
}

func TestPaymentServiceStartListingCheckoutProcessorFailure(t *testing.T) {
	repo := newMockPaymentRepo()
	processor := &mockProcessor{sessionErr: errors.New("stripe down")}
	svc := NewPaymentService(repo, newMockPaymentListings(), processor, nil, nil, listingFeeConfig())

	_, err := svc.StartListingCheckout(context.Background(), "u1", &models.Listing{ID: "l1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPaymentFailed.Code, appErrors.FromError(err).Code)

	// Intent stays recorded as failed.
	intent := repo.intents[processor.lastParams.IntentID]
	assert.Equal(t, models.PaymentIntentFailed, intent.Status)
}

func TestPaymentServiceWebhookActivatesListing(t *testing.T) {
	repo := newMockPaymentRepo()
	listings := newMockPaymentListings()
	listingID := "l1"
	repo.intents["intent-1"] = models.PaymentIntent{
		ID: "intent-1", UserID: "u1", ListingID: &listingID,
		Kind: models.PaymentKindListing, Status: models.PaymentIntentPending,
	}
	processor := &mockProcessor{event: &payments.WebhookEvent{
		Type: payments.EventCheckoutCompleted, SessionID: "cs_test", ReferenceID: "l1", IntentID: "intent-1",
	}}
	svc := NewPaymentService(repo, listings, processor, nil, nil, listingFeeConfig())

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Equal(t, []string{"l1"}, listings.paid)
	assert.Equal(t, models.PaymentIntentCompleted, repo.intents["intent-1"].Status)
}

func TestPaymentServiceWebhookIsIdempotent(t *testing.T) {
	repo := newMockPaymentRepo()
	listings := newMockPaymentListings()
	listingID := "l1"
	repo.intents["intent-1"] = models.PaymentIntent{
		ID: "intent-1", ListingID: &listingID,
		Kind: models.PaymentKindListing, Status: models.PaymentIntentPending,
	}
	processor := &mockProcessor{event: &payments.WebhookEvent{
		Type: payments.EventCheckoutCompleted, IntentID: "intent-1",
	}}
	svc := NewPaymentService(repo, listings, processor, nil, nil, listingFeeConfig())

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Len(t, listings.paid, 1)
}

func TestPaymentServiceWebhookIgnoresOtherEvents(t *testing.T) {
	listings := newMockPaymentListings()
	processor := &mockProcessor{event: &payments.WebhookEvent{Type: "invoice.paid"}}
	svc := NewPaymentService(newMockPaymentRepo(), listings, processor, nil, nil, listingFeeConfig())

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	assert.Empty(t, listings.paid)
}

func TestPaymentServiceWebhookRejectsBadSignature(t *testing.T) {
	processor := &mockProcessor{parseErr: errors.New("bad signature")}
	svc := NewPaymentService(newMockPaymentRepo(), newMockPaymentListings(), processor, nil, nil, listingFeeConfig())

	err := svc.HandleWebhook(context.Background(), []byte("{}"), "sig")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestPaymentServiceWebhookFeaturesListing(t *testing.T) {
	repo := newMockPaymentRepo()
	listings := newMockPaymentListings()
	listingID := "l1"
	repo.intents["intent-2"] = models.PaymentIntent{
		ID: "intent-2", ListingID: &listingID,
		Kind: models.PaymentKindFeatured, Status: models.PaymentIntentPending,
	}
	processor := &mockProcessor{event: &payments.WebhookEvent{
		Type: payments.EventCheckoutCompleted, IntentID: "intent-2",
	}}
	svc := NewPaymentService(repo, listings, processor, nil, nil, listingFeeConfig())

	require.NoError(t, svc.HandleWebhook(context.Background(), []byte("{}"), "sig"))
	until, ok := listings.featured["l1"]
	require.True(t, ok)
	assert.True(t, until.After(time.Now().UTC()))
}

func TestPaymentServiceStartFeaturedCheckoutRequiresPaidListing(t *testing.T) {
	listings := newMockPaymentListings()
	listings.listings["l1"] = models.Listing{ID: "l1", OwnerID: "u1", PaymentStatus: models.PaymentStateUnpaid}
	svc := NewPaymentService(newMockPaymentRepo(), listings, &mockProcessor{}, nil, nil, listingFeeConfig())

	_, err := svc.StartFeaturedCheckout(context.Background(), "u1", "l1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}
