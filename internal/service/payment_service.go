package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/pkg/config"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/payments"
)

type paymentRepository interface {
	Create(ctx context.Context, intent *models.PaymentIntent) error
	FindByID(ctx context.Context, id string) (*models.PaymentIntent, error)
	SetStripeSession(ctx context.Context, id, sessionID string) error
	MarkCompleted(ctx context.Context, id string) (bool, error)
	MarkFailed(ctx context.Context, id string) error
	ListByUser(ctx context.Context, userID string) ([]models.PaymentIntent, error)
}

type paymentListingStore interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
	MarkPaid(ctx context.Context, id string) error
	SetFeatured(ctx context.Context, id string, until time.Time) error
}

type checkoutProcessor interface {
	CreateCheckoutSession(ctx context.Context, p payments.CheckoutParams) (*payments.CheckoutSession, error)
	ParseWebhook(payload []byte, signature string) (*payments.WebhookEvent, error)
}

// Featured placement runs a fixed term from the day it is paid.
const featuredTerm = 30 * 24 * time.Hour

// PaymentService records payment intents, opens checkout sessions and applies
// processor webhook outcomes to listings.
type PaymentService struct {
	repo      paymentRepository
	listings  paymentListingStore
	processor checkoutProcessor
	logger    *zap.Logger
	metrics   *MetricsService
	cfg       config.ListingsConfig
}

// NewPaymentService constructs the payment service.
func NewPaymentService(repo paymentRepository, listings paymentListingStore, processor checkoutProcessor, logger *zap.Logger, metrics *MetricsService, cfg config.ListingsConfig) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{repo: repo, listings: listings, processor: processor, logger: logger, metrics: metrics, cfg: cfg}
}

// StartListingCheckout records a pending intent for the listing fee and opens
// exactly one checkout session for it. A processor failure marks the intent
// failed and surfaces to the caller; nothing is retried here.
func (s *PaymentService) StartListingCheckout(ctx context.Context, userID string, listing *models.Listing) (*models.CheckoutInfo, error) {
	intent := &models.PaymentIntent{
		UserID:      userID,
		ListingID:   &listing.ID,
		AmountCents: s.cfg.FeeCents,
		Kind:        models.PaymentKindListing,
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment intent")
	}

	return s.openSession(ctx, intent, payments.CheckoutParams{
		AmountCents: intent.AmountCents,
		ReferenceID: listing.ID,
		IntentID:    intent.ID,
		Kind:        payments.KindListing,
		PayerID:     userID,
		Description: fmt.Sprintf("Listing fee for %q", listing.Title),
	})
}

// StartFeaturedCheckout opens a checkout session to promote a paid listing.
func (s *PaymentService) StartFeaturedCheckout(ctx context.Context, userID, listingID string) (*models.CheckoutInfo, error) {
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if listing.OwnerID != userID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "listing belongs to another user")
	}
	if listing.PaymentStatus != models.PaymentStatePaid {
		return nil, appErrors.Clone(appErrors.ErrConflict, "listing fee must be paid before featuring")
	}

	intent := &models.PaymentIntent{
		UserID:      userID,
		ListingID:   &listing.ID,
		AmountCents: s.cfg.FeaturedFeeCents,
		Kind:        models.PaymentKindFeatured,
	}
	if err := s.repo.Create(ctx, intent); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record payment intent")
	}

	return s.openSession(ctx, intent, payments.CheckoutParams{
		AmountCents: intent.AmountCents,
		ReferenceID: listing.ID,
		IntentID:    intent.ID,
		Kind:        payments.KindFeatured,
		PayerID:     userID,
		Description: fmt.Sprintf("Featured placement for %q", listing.Title),
	})
}

// HandleWebhook applies a verified processor event. Only checkout completion
// is acted on; completing an intent twice is a no-op, which makes repeated
// webhook deliveries safe.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.processor.ParseWebhook(payload, signature)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid webhook signature")
	}
	if event.Type != payments.EventCheckoutCompleted {
		return nil
	}
	if event.IntentID == "" {
		s.logger.Warn("checkout completion without intent metadata", zap.String("session_id", event.SessionID))
		return nil
	}

	changed, err := s.repo.MarkCompleted(ctx, event.IntentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete payment intent")
	}
	if !changed {
		return nil
	}

	intent, err := s.repo.FindByID(ctx, event.IntentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment intent")
	}
	if intent.ListingID == nil {
		return nil
	}

	switch intent.Kind {
	case models.PaymentKindListing:
		if err := s.listings.MarkPaid(ctx, *intent.ListingID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate listing")
		}
	case models.PaymentKindFeatured:
		if err := s.listings.SetFeatured(ctx, *intent.ListingID, time.Now().UTC().Add(featuredTerm)); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to feature listing")
		}
	}

	s.metrics.PaymentCompleted()
	s.logger.Info("payment applied",
		zap.String("intent_id", intent.ID),
		zap.String("listing_id", *intent.ListingID),
		zap.String("kind", string(intent.Kind)))
	return nil
}

// History returns a user's payment intents, newest first.
func (s *PaymentService) History(ctx context.Context, userID string) ([]models.PaymentIntent, error) {
	intents, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load payment history")
	}
	return intents, nil
}

func (s *PaymentService) openSession(ctx context.Context, intent *models.PaymentIntent, params payments.CheckoutParams) (*models.CheckoutInfo, error) {
	sess, err := s.processor.CreateCheckoutSession(ctx, params)
	if err != nil {
		if ferr := s.repo.MarkFailed(ctx, intent.ID); ferr != nil {
			s.logger.Warn("failed to mark intent failed", zap.String("intent_id", intent.ID), zap.Error(ferr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrPaymentFailed.Code, appErrors.ErrPaymentFailed.Status, "payment session could not be created")
	}
	if err := s.repo.SetStripeSession(ctx, intent.ID, sess.ID); err != nil {
		s.logger.Warn("failed to record stripe session", zap.String("intent_id", intent.ID), zap.Error(err))
	}
	return &models.CheckoutInfo{SessionID: sess.ID, URL: sess.URL}, nil
}
