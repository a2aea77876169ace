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

// MessageRepository persists buyer-to-seller messages.
type MessageRepository struct {
	db *sqlx.DB
}

// NewMessageRepository constructs a MessageRepository.
func NewMessageRepository(db *sqlx.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create inserts a message.
func (r *MessageRepository) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO messages (id, listing_id, from_user_id, to_user_id, body, read, created_at)
        VALUES (:id, :listing_id, :from_user_id, :to_user_id, :body, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, msg); err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	return nil
}

// FindByID returns a message by identifier.
func (r *MessageRepository) FindByID(ctx context.Context, id string) (*models.Message, error) {
	const query = `SELECT id, listing_id, from_user_id, to_user_id, body, read, created_at FROM messages WHERE id = $1 LIMIT 1`
	var msg models.Message
	if err := r.db.GetContext(ctx, &msg, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find message: %w", err)
	}
	return &msg, nil
}

// ListForUser returns the messages addressed to a user, newest first.
func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	const query = `SELECT id, listing_id, from_user_id, to_user_id, body, read, created_at FROM messages WHERE to_user_id = $1 ORDER BY created_at DESC`
	messages := []models.Message{}
	if err := r.db.SelectContext(ctx, &messages, query, userID); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkRead flags a message as read by its recipient.
func (r *MessageRepository) MarkRead(ctx context.Context, id string) error {
	const query = `UPDATE messages SET read = TRUE WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	return nil
}
