package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kenailandsales/land-api/internal/models"
	appErrors "github.com/kenailandsales/land-api/pkg/errors"
	"github.com/kenailandsales/land-api/pkg/response"
)

type paymentService interface {
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
	StartFeaturedCheckout(ctx context.Context, userID, listingID string) (*models.CheckoutInfo, error)
	History(ctx context.Context, userID string) ([]models.PaymentIntent, error)
}

// PaymentHandler exposes the processor webhook and payment history.
type PaymentHandler struct {
	payments paymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments paymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Webhook godoc
// @Summary Stripe webhook receiver
// @Tags Payments
// @Accept json
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /payments/webhook [post]
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable webhook body"))
		return
	}

	if err := h.payments.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusOK)
}

// Feature godoc
// @Summary Open a checkout session for featured placement
// @Tags Payments
// @Produce json
// @Param id path string true "Listing ID"
// @Success 200 {object} response.Envelope
// @Router /listings/{id}/feature [post]
func (h *PaymentHandler) Feature(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	checkout, err := h.payments.StartFeaturedCheckout(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, checkout, nil)
}

// History godoc
// @Summary Own payment history
// @Tags Payments
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	intents, err := h.payments.History(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, intents, nil)
}
