package payments

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/checkout/session"
	"github.com/stripe/stripe-go/v78/webhook"

	"github.com/kenailandsales/land-api/pkg/config"
)

// CheckoutKind identifies what a checkout session pays for.
type CheckoutKind string

const (
	KindListing  CheckoutKind = "listing"
	KindFeatured CheckoutKind = "featured"
)

// EventCheckoutCompleted is the only webhook event type this service acts on.
const EventCheckoutCompleted = "checkout.session.completed"

// CheckoutParams describes a single payment session request.
type CheckoutParams struct {
	AmountCents int64
	ReferenceID string
	IntentID    string
	Kind        CheckoutKind
	PayerID     string
	Description string
}

// CheckoutSession is the processor-side session the client is redirected to.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WebhookEvent is the normalised subset of a processor webhook the payment
// service consumes. Keeping Stripe types out of the service layer keeps it
// mockable.
type WebhookEvent struct {
	Type        string
	SessionID   string
	ReferenceID string
	IntentID    string
}

// StripeClient creates Checkout sessions and verifies webhook signatures.
type StripeClient struct {
	sessions      session.Client
	webhookSecret string
	successURL    string
	cancelURL     string
}

// NewStripeClient wires a client against the live Stripe API backend.
func NewStripeClient(cfg config.StripeConfig) *StripeClient {
	return &StripeClient{
		sessions:      session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: cfg.SecretKey},
		webhookSecret: cfg.WebhookSecret,
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
	}
}

// CreateCheckoutSession opens one payment session for the given reference.
// Exactly one request is issued; failures surface to the caller unretried.
func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	if p.AmountCents <= 0 {
		return nil, fmt.Errorf("checkout amount must be positive")
	}

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(p.ReferenceID),
	}
	params.Context = ctx
	params.AddMetadata("intent_id", p.IntentID)
	params.AddMetadata("kind", string(p.Kind))
	params.AddMetadata("payer_id", p.PayerID)

	sess, err := c.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// ParseWebhook verifies the signature and extracts the fields the payment
// service needs. Event types other than checkout completion pass through
// with an empty payload for the caller to ignore.
func (c *StripeClient) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, c.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook: %w", err)
	}

	out := &WebhookEvent{Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	out.SessionID = sess.ID
	out.ReferenceID = sess.ClientReferenceID
	if sess.Metadata != nil {
		out.IntentID = sess.Metadata["intent_id"]
	}
	return out, nil
}
