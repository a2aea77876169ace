package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenailandsales/land-api/internal/models"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
)

type mockMessageRepo struct {
	messages map[string]models.Message
	read     []string
}

func newMockMessageRepo() *mockMessageRepo {
	return &mockMessageRepo{messages: map[string]models.Message{}}
}

func (m *mockMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = "m1"
	}
	m.messages[msg.ID] = *msg
	return nil
}

func (m *mockMessageRepo) FindByID(ctx context.Context, id string) (*models.Message, error) {
	if msg, ok := m.messages[id]; ok {
		return &msg, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockMessageRepo) ListForUser(ctx context.Context, userID string) ([]models.Message, error) {
	out := []models.Message{}
	for _, msg := range m.messages {
		if msg.ToUserID == userID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockMessageRepo) MarkRead(ctx context.Context, id string) error {
	m.read = append(m.read, id)
	return nil
}

func TestMessageServiceSendRoutesToOwner(t *testing.T) {
	repo := newMockMessageRepo()
	listings := newMockPaymentListings()
	listings.listings["l1"] = models.Listing{ID: "l1", OwnerID: "seller"}
	svc := NewMessageService(repo, listings, nil, nil)

	msg, err := svc.Send(context.Background(), "buyer", SendMessageRequest{ListingID: "l1", Body: "Is the well drilled?"})
	require.NoError(t, err)
	assert.Equal(t, "seller", msg.ToUserID)
	assert.Equal(t, "buyer", msg.FromUserID)
}

func TestMessageServiceSendRejectsSelfMessage(t *testing.T) {
	listings := newMockPaymentListings()
	listings.listings["l1"] = models.Listing{ID: "l1", OwnerID: "seller"}
	svc := NewMessageService(newMockMessageRepo(), listings, nil, nil)

	_, err := svc.Send(context.Background(), "seller", SendMessageRequest{ListingID: "l1", Body: "hi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestMessageServiceSendUnknownListing(t *testing.T) {
	svc := NewMessageService(newMockMessageRepo(), newMockPaymentListings(), nil, nil)

	_, err := svc.Send(context.Background(), "buyer", SendMessageRequest{ListingID: "missing", Body: "hi"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestMessageServiceMarkReadRecipientOnly(t *testing.T) {
	repo := newMockMessageRepo()
	repo.messages["m1"] = models.Message{ID: "m1", ToUserID: "seller"}
	svc := NewMessageService(repo, newMockPaymentListings(), nil, nil)

	err := svc.MarkRead(context.Background(), "someone-else", "m1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	require.NoError(t, svc.MarkRead(context.Background(), "seller", "m1"))
	assert.Equal(t, []string{"m1"}, repo.read)
}
