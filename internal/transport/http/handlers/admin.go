package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/usecase"
)

// Provisioner creates tenants and owner accounts on behalf of an operator.
type Provisioner interface {
	CreateTenant(ctx context.Context, in usecase.TenantInput) (usecase.ProvisionedTenant, error)
	CreateAccount(ctx context.Context, in domain.AccountInput) (usecase.ProvisionedAccount, error)
}

// AdminHandler serves operator provisioning endpoints. Callers must already
// be authorized as admins.
type AdminHandler struct {
	provisioner Provisioner
}

// NewAdminHandler creates an admin handler.
func NewAdminHandler(provisioner Provisioner) *AdminHandler {
	return &AdminHandler{provisioner: provisioner}
}

// RegisterRoutes registers provisioning endpoints.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/tenants", h.CreateTenant)
	r.POST("/accounts", h.CreateAccount)
}

// CreateTenant provisions a tenant and returns its public menu link.
func (h *AdminHandler) CreateTenant(c *gin.Context) {
	var req CreateTenantRequest
	_ = c.ShouldBindJSON(&req)

	created, err := h.provisioner.CreateTenant(c.Request.Context(), usecase.TenantInput{
		Name:            req.Name,
		Languages:       req.Languages,
		DefaultLanguage: req.DefaultLanguage,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateTenantResponse{
		OK:       true,
		TenantID: created.TenantID,
		Token:    created.Link.Token,
		MenuURL:  created.Link.MenuURL,
	})
}

// CreateAccount provisions an active owner account for an existing tenant.
func (h *AdminHandler) CreateAccount(c *gin.Context) {
	var req CreateAccountRequest
	_ = c.ShouldBindJSON(&req)

	created, err := h.provisioner.CreateAccount(c.Request.Context(), domain.AccountInput{
		Email:      req.Email,
		Credential: req.Password,
		TenantID:   req.TenantID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateAccountResponse{
		OK:        true,
		AccountID: created.AccountID,
		TenantID:  created.TenantID,
	})
}
