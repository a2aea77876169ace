package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kenailandsales/land-api/internal/models"
)

// PaymentRepository persists payment intents tracking fee collection.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a PaymentRepository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts a pending payment intent.
func (r *PaymentRepository) Create(ctx context.Context, intent *models.PaymentIntent) error {
	if intent.ID == "" {
		intent.ID = uuid.NewString()
	}
	if intent.Status == "" {
		intent.Status = models.PaymentIntentPending
	}
	now := time.Now().UTC()
	if intent.CreatedAt.IsZero() {
		intent.CreatedAt = now
	}
	intent.UpdatedAt = now

	const query = `INSERT INTO payment_intents (id, user_id, listing_id, amount_cents, kind, stripe_session_id, status, created_at, updated_at)
        VALUES (:id, :user_id, :listing_id, :amount_cents, :kind, :stripe_session_id, :status, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, intent); err != nil {
		return fmt.Errorf("create payment intent: %w", err)
	}
	return nil
}

// FindByID returns a payment intent by identifier.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	const query = `SELECT id, user_id, listing_id, amount_cents, kind, stripe_session_id, status, created_at, updated_at FROM payment_intents WHERE id = $1 LIMIT 1`
	var intent models.PaymentIntent
	if err := r.db.GetContext(ctx, &intent, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find payment intent: %w", err)
	}
	return &intent, nil
}

// SetStripeSession records the processor session opened for an intent.
func (r *PaymentRepository) SetStripeSession(ctx context.Context, id, sessionID string) error {
	const query = `UPDATE payment_intents SET stripe_session_id = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, sessionID, time.Now().UTC()); err != nil {
		return fmt.Errorf("set stripe session: %w", err)
	}
	return nil
}

// MarkCompleted moves a pending intent to completed. Intents already in a
// terminal state are left untouched, which makes webhook delivery idempotent.
func (r *PaymentRepository) MarkCompleted(ctx context.Context, id string) (bool, error) {
	const query = `UPDATE payment_intents SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	result, err := r.db.ExecContext(ctx, query, id, models.PaymentIntentCompleted, time.Now().UTC(), models.PaymentIntentPending)
	if err != nil {
		return false, fmt.Errorf("complete payment intent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// MarkFailed moves a pending intent to failed.
func (r *PaymentRepository) MarkFailed(ctx context.Context, id string) error {
	const query = `UPDATE payment_intents SET status = $2, updated_at = $3 WHERE id = $1 AND status = $4`
	if _, err := r.db.ExecContext(ctx, query, id, models.PaymentIntentFailed, time.Now().UTC(), models.PaymentIntentPending); err != nil {
		return fmt.Errorf("fail payment intent: %w", err)
	}
	return nil
}

// ListByUser returns a user's payment history, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]models.PaymentIntent, error) {
	const query = `SELECT id, user_id, listing_id, amount_cents, kind, stripe_session_id, status, created_at, updated_at FROM payment_intents WHERE user_id = $1 ORDER BY created_at DESC`
	intents := []models.PaymentIntent{}
	if err := r.db.SelectContext(ctx, &intents, query, userID); err != nil {
		return nil, fmt.Errorf("list payment intents: %w", err)
	}
	return intents, nil
}
