package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/usecase"
)

// TenantParam names the route parameter carrying the tenant id.
const TenantParam = "tenantId"

// MenuLinks resolves the public sharing link of a tenant.
type MenuLinks interface {
	PublicMenuLink(ctx context.Context, tenantID string) (usecase.PublicMenuLink, error)
}

// TenantHandler serves owner-facing tenant endpoints.
type TenantHandler struct {
	links MenuLinks
}

// NewTenantHandler creates a tenant handler.
func NewTenantHandler(links MenuLinks) *TenantHandler {
	return &TenantHandler{links: links}
}

// PublicToken returns the tenant's public menu token and URL.
func (h *TenantHandler) PublicToken(c *gin.Context) {
	link, err := h.links.PublicMenuLink(c.Request.Context(), c.Param(TenantParam))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, PublicTokenResponse{
		TenantID: link.TenantID,
		Token:    link.Token,
		MenuURL:  link.MenuURL,
	})
}
