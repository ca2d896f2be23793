package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/transport/http/middleware"
)

// ErrorResponse carries a machine-readable error code and the trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, code string) ErrorResponse {
	return ErrorResponse{
		Error:   code,
		TraceID: middleware.GetTraceID(c),
	}
}

// LoginRequest is the payload of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the session attached to the response cookie.
type SessionResponse struct {
	OK       bool                 `json:"ok"`
	Role     domain.Role          `json:"role"`
	TenantID *string              `json:"tenantId"`
	Status   domain.AccountStatus `json:"status"`
}

func newSessionResponse(descriptor domain.SessionDescriptor) SessionResponse {
	return SessionResponse{
		OK:       true,
		Role:     descriptor.Role,
		TenantID: descriptor.TenantID,
		Status:   descriptor.Status,
	}
}

// SignupRequest is the payload of POST /signup/request.
type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Venue    string `json:"venue"`
	Plan     string `json:"plan"`
}

// SignupRequestResponse is returned for every accepted submission.
type SignupRequestResponse struct {
	OK        bool               `json:"ok"`
	State     domain.SignupState `json:"state"`
	Token     string             `json:"token"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

// SignupVerifyRequest is the payload of POST /signup/verify.
type SignupVerifyRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// SignupVerifyResponse reports the verified account.
type SignupVerifyResponse struct {
	OK    bool               `json:"ok"`
	State domain.SignupState `json:"state"`
	Email string             `json:"email"`
	Plan  string             `json:"plan"`
}

// CheckoutRequest is the payload of POST /checkout/create.
type CheckoutRequest struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// CheckoutResponse carries the provider redirect URL.
type CheckoutResponse struct {
	OK    bool               `json:"ok"`
	State domain.SignupState `json:"state"`
	URL   string             `json:"url,omitempty"`
}

// WebhookResponse acknowledges a verified webhook delivery.
type WebhookResponse struct {
	Received bool               `json:"received"`
	Outcome  string             `json:"outcome"`
	State    domain.SignupState `json:"state,omitempty"`
}

// PublicTokenResponse exposes the public menu link of a tenant.
type PublicTokenResponse struct {
	TenantID string `json:"tenantId"`
	Token    string `json:"token"`
	MenuURL  string `json:"menuUrl"`
}

// CreateTenantRequest is the payload of POST /admin/tenants.
type CreateTenantRequest struct {
	Name            string   `json:"name"`
	Languages       []string `json:"languages"`
	DefaultLanguage string   `json:"defaultLang"`
}

// CreateTenantResponse describes a provisioned tenant.
type CreateTenantResponse struct {
	OK       bool   `json:"ok"`
	TenantID string `json:"tenantId"`
	Token    string `json:"token"`
	MenuURL  string `json:"menuUrl"`
}

// CreateAccountRequest is the payload of POST /admin/accounts.
type CreateAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TenantID string `json:"tenantId"`
}

// CreateAccountResponse describes a provisioned owner account.
type CreateAccountResponse struct {
	OK        bool   `json:"ok"`
	AccountID string `json:"accountId"`
	TenantID  string `json:"tenantId"`
}

// OKResponse is returned by endpoints without a body of their own.
type OKResponse struct {
	OK bool `json:"ok"`
}

// HealthResponse reports liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse describes readiness check results with dependency checks.
type ReadyResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}
