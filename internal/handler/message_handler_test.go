package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kenailandsales/land-api/internal/middleware"
	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/internal/service"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
)

type messageServiceMock struct {
	sendResp  *models.Message
	sendErr   error
	inbox     []models.Message
	readErr   error
	readCalls []string
}

func (m *messageServiceMock) Send(ctx context.Context, fromUserID string, req service.SendMessageRequest) (*models.Message, error) {
	return m.sendResp, m.sendErr
}

func (m *messageServiceMock) Inbox(ctx context.Context, userID string) ([]models.Message, error) {
	return m.inbox, nil
}

func (m *messageServiceMock) MarkRead(ctx context.Context, userID, messageID string) error {
	m.readCalls = append(m.readCalls, messageID)
	return m.readErr
}

func TestMessageHandlerSend(t *testing.T) {
	mockSvc := &messageServiceMock{sendResp: &models.Message{ID: "m1", ToUserID: "seller"}}
	handler := NewMessageHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/messages", []byte(`{"listing_id":"l1","body":"hi"}`))
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "buyer"})
	handler.Send(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "m1")
}

func TestMessageHandlerSendRequiresAuth(t *testing.T) {
	handler := NewMessageHandler(&messageServiceMock{})

	c, w := testContext(t, http.MethodPost, "/messages", []byte(`{}`))
	handler.Send(c)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMessageHandlerMarkReadForbidden(t *testing.T) {
	mockSvc := &messageServiceMock{readErr: appErrors.Clone(appErrors.ErrForbidden, "message belongs to another user")}
	handler := NewMessageHandler(mockSvc)

	c, w := testContext(t, http.MethodPost, "/messages/m1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "m1"}}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "intruder"})
	handler.MarkRead(c)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"m1"}, mockSvc.readCalls)
}
