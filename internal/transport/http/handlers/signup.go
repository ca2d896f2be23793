package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/usecase"
)

// SignupFlow is the slice of the signup service the HTTP layer uses.
type SignupFlow interface {
	SubmitDetails(ctx context.Context, in domain.SignupInput) (usecase.SubmitResult, error)
	VerifyCode(ctx context.Context, token, code string) (usecase.VerifyResult, error)
	VerifyLink(ctx context.Context, token string) (usecase.VerifyResult, error)
	StartCheckout(ctx context.Context, email, plan string) (usecase.CheckoutResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (usecase.ActivationResult, error)
}

// SignupHandler serves signup submission and email verification.
type SignupHandler struct {
	signup SignupFlow
}

// NewSignupHandler creates a signup handler.
func NewSignupHandler(signup SignupFlow) *SignupHandler {
	return &SignupHandler{signup: signup}
}

// RegisterRoutes registers signup endpoints.
func (h *SignupHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/request", h.Request)
	r.POST("/verify", h.VerifyCode)
	r.GET("/verify", h.VerifyLink)
}

// Request validates the signup form and emails a verification code.
func (h *SignupHandler) Request(c *gin.Context) {
	var req SignupRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.signup.SubmitDetails(c.Request.Context(), domain.SignupInput{
		Email:      req.Email,
		Credential: req.Password,
		VenueName:  req.Venue,
		Plan:       req.Plan,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, SignupRequestResponse{
		OK:        true,
		State:     result.State,
		Token:     result.Token,
		ExpiresAt: result.ExpiresAt,
	})
}

// VerifyCode confirms the emailed six-digit code.
func (h *SignupHandler) VerifyCode(c *gin.Context) {
	var req SignupVerifyRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.signup.VerifyCode(c.Request.Context(), req.Token, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVerifyResponse(result))
}

// VerifyLink confirms the emailed link token.
func (h *SignupHandler) VerifyLink(c *gin.Context) {
	result, err := h.signup.VerifyLink(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newVerifyResponse(result))
}

func newVerifyResponse(result usecase.VerifyResult) SignupVerifyResponse {
	return SignupVerifyResponse{
		OK:    true,
		State: result.State,
		Email: result.Email,
		Plan:  result.Plan,
	}
}
