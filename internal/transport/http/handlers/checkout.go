package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 64 << 10
)

// CheckoutHandler starts payment and receives provider webhooks.
type CheckoutHandler struct {
	signup SignupFlow
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(signup SignupFlow) *CheckoutHandler {
	return &CheckoutHandler{signup: signup}
}

// RegisterRoutes registers checkout endpoints.
func (h *CheckoutHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/create", h.Create)
	r.POST("/webhook", h.Webhook)
}

// Create opens a hosted checkout session for a verified account.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req CheckoutRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.signup.StartCheckout(c.Request.Context(), req.Email, req.Plan)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, CheckoutResponse{
		OK:    true,
		State: result.State,
		URL:   result.URL,
	})
}

// Webhook verifies the provider signature over the raw body before anything else.
func (h *CheckoutHandler) Webhook(c *gin.Context) {
	signature := c.GetHeader(stripeSignatureHeader)
	if signature == "" {
		respondError(c, domain.ErrMissingSignature)
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, domain.ErrInvalidSignature)
			return
		}
		respondError(c, err)
		return
	}

	result, err := h.signup.HandleWebhook(c.Request.Context(), payload, signature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, WebhookResponse{Received: true, Outcome: result.Outcome, State: result.State})
}
