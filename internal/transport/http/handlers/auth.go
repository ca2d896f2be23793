package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/transport/http/middleware"
	"github.com/arklim/menu-accounts/internal/usecase"
)

// Authenticator is the slice of the auth service the HTTP layer uses.
type Authenticator interface {
	Login(ctx context.Context, in usecase.LoginInput) (usecase.IssuedSession, error)
	Refresh(ctx context.Context, cookieValue string) (usecase.IssuedSession, error)
	Session(cookieValue string) (domain.SessionDescriptor, error)
}

// AuthHandler wires login, refresh, logout and session inspection.
type AuthHandler struct {
	auth   Authenticator
	cookie CookieSettings
}

// NewAuthHandler creates a new authentication handler.
func NewAuthHandler(auth Authenticator, cookie CookieSettings) *AuthHandler {
	return &AuthHandler{auth: auth, cookie: cookie}
}

// RegisterRoutes registers auth endpoints.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/login", h.Login)
	r.POST("/refresh", h.Refresh)
	r.POST("/logout", h.Logout)
	r.GET("/session", h.Session)
}

// Login authenticates email and password and sets the session cookie.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	// A malformed body is treated as empty so presence checks answer MISSING_FIELDS.
	_ = c.ShouldBindJSON(&req)

	issued, err := h.auth.Login(c.Request.Context(), usecase.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		IP:       middleware.ClientIP(c.Request),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookie.write(c, issued.Value)
	c.JSON(http.StatusOK, newSessionResponse(issued.Descriptor))
}

// Refresh reissues the session cookie from the current account state.
func (h *AuthHandler) Refresh(c *gin.Context) {
	issued, err := h.auth.Refresh(c.Request.Context(), h.cookie.read(c))
	if err != nil {
		respondError(c, err)
		return
	}

	h.cookie.write(c, issued.Value)
	c.JSON(http.StatusOK, newSessionResponse(issued.Descriptor))
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	h.cookie.clear(c)
	c.JSON(http.StatusOK, OKResponse{OK: true})
}

// Session describes the current session without touching the store.
func (h *AuthHandler) Session(c *gin.Context) {
	descriptor, err := h.auth.Session(h.cookie.read(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionResponse(descriptor))
}
