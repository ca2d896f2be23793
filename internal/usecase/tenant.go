package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/security"
	"github.com/arklim/menu-accounts/internal/repository"
)

// PublicMenuLink is what an owner shares to expose the public menu.
type PublicMenuLink struct {
	TenantID string
	Token    string
	MenuURL  string
}

// TenantService serves owner-facing tenant lookups.
type TenantService struct {
	store   port.CredentialStore
	baseURL string
}

// NewTenantService constructs a TenantService instance.
func NewTenantService(store port.CredentialStore, baseURL string) (*TenantService, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	return &TenantService{store: store, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// PublicMenuLink returns the active public token of tenantID and the menu URL built from it.
func (s *TenantService) PublicMenuLink(ctx context.Context, tenantID string) (PublicMenuLink, error) {
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return PublicMenuLink{}, domain.ErrMissingFields
	}
	if _, err := uuid.Parse(tenantID); err != nil {
		return PublicMenuLink{}, domain.NewError(domain.CodeNotFound, err)
	}

	token, err := s.store.FindPublicTokenByTenant(ctx, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return PublicMenuLink{}, domain.NewError(domain.CodeNotFound, err)
		}
		return PublicMenuLink{}, fmt.Errorf("lookup public token: %w", err)
	}

	return newPublicMenuLink(s.baseURL, *token), nil
}

func newPublicMenuLink(baseURL string, token domain.PublicToken) PublicMenuLink {
	return PublicMenuLink{
		TenantID: token.TenantID,
		Token:    token.Token,
		MenuURL:  baseURL + "/menu/" + url.PathEscape(token.Token),
	}
}

// provisionTenant inserts tenant together with its first active public token.
// Callers run it inside a transaction.
func provisionTenant(ctx context.Context, store port.CredentialStore, tenant domain.Tenant) (domain.PublicToken, error) {
	if err := store.InsertTenant(ctx, tenant); err != nil {
		return domain.PublicToken{}, fmt.Errorf("insert tenant: %w", err)
	}
	value, err := security.GenerateHexToken(publicTokenBytes)
	if err != nil {
		return domain.PublicToken{}, fmt.Errorf("generate public token: %w", err)
	}
	token := domain.PublicToken{
		Token:      value,
		TenantID:   tenant.ID,
		TenantName: tenant.Name,
		Active:     true,
		CreatedAt:  tenant.CreatedAt,
	}
	if err := store.InsertPublicToken(ctx, token); err != nil {
		return domain.PublicToken{}, fmt.Errorf("insert public token: %w", err)
	}
	return token, nil
}
