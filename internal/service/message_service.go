package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/kenailandsales/land-api/internal/models"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
)

type messageRepository interface {
	Create(ctx context.Context, msg *models.Message) error
	FindByID(ctx context.Context, id string) (*models.Message, error)
	ListForUser(ctx context.Context, userID string) ([]models.Message, error)
	MarkRead(ctx context.Context, id string) error
}

type messageListingStore interface {
	FindByID(ctx context.Context, id string) (*models.Listing, error)
}

// SendMessageRequest holds the contact-seller payload.
type SendMessageRequest struct {
	ListingID string `json:"listing_id" validate:"required"`
	Body      string `json:"body" validate:"required,max=2000"`
}

// MessageService routes buyer enquiries to listing owners.
type MessageService struct {
	repo      messageRepository
	listings  messageListingStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewMessageService constructs the message service.
func NewMessageService(repo messageRepository, listings messageListingStore, validate *validator.Validate, logger *zap.Logger) *MessageService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageService{repo: repo, listings: listings, validator: validate, logger: logger}
}

// Send delivers a message about a listing to its owner.
func (s *MessageService) Send(ctx context.Context, fromUserID string, req SendMessageRequest) (*models.Message, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid message payload")
	}

	listing, err := s.listings.FindByID(ctx, req.ListingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "listing not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load listing")
	}
	if listing.OwnerID == fromUserID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cannot message your own listing")
	}

	msg := &models.Message{
		ListingID:  listing.ID,
		FromUserID: fromUserID,
		ToUserID:   listing.OwnerID,
		Body:       req.Body,
	}
	if err := s.repo.Create(ctx, msg); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send message")
	}
	return msg, nil
}

// Inbox returns the messages addressed to a user, newest first.
func (s *MessageService) Inbox(ctx context.Context, userID string) ([]models.Message, error) {
	messages, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load messages")
	}
	return messages, nil
}

// MarkRead flags a received message as read. Only the recipient may do so.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID string) error {
	msg, err := s.repo.FindByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "message not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load message")
	}
	if msg.ToUserID != userID {
		return appErrors.Clone(appErrors.ErrForbidden, "message belongs to another user")
	}
	if err := s.repo.MarkRead(ctx, messageID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark message read")
	}
	return nil
}
