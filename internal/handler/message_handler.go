package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kenailandsales/land-api/internal/models"
	"github.com/kenailandsales/land-api/internal/service"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/response"
)

type messageService interface {
	Send(ctx context.Context, fromUserID string, req service.SendMessageRequest) (*models.Message, error)
	Inbox(ctx context.Context, userID string) ([]models.Message, error)
	MarkRead(ctx context.Context, userID, messageID string) error
}

// MessageHandler exposes contact-seller messaging.
type MessageHandler struct {
	messages messageService
}

// NewMessageHandler constructs MessageHandler.
func NewMessageHandler(messages messageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

// Send godoc
// @Summary Message a listing owner
// @Tags Messages
// @Accept json
// @Produce json
// @Param payload body service.SendMessageRequest true "Message payload"
// @Success 201 {object} response.Envelope
// @Router /messages [post]
func (h *MessageHandler) Send(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	msg, err := h.messages.Send(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, msg)
}

// Inbox godoc
// @Summary List received messages
// @Tags Messages
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /messages [get]
func (h *MessageHandler) Inbox(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	messages, err := h.messages.Inbox(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, messages, nil)
}

// MarkRead godoc
// @Summary Mark a message as read
// @Tags Messages
// @Produce json
// @Param id path string true "Message ID"
// @Success 204
// @Router /messages/{id}/read [post]
func (h *MessageHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.messages.MarkRead(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
