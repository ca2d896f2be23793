package port

import (
	"context"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

// CredentialStore exposes persistence for accounts, signup requests and tenants.
// Lookups return repository.ErrNotFound when nothing matches.
type CredentialStore interface {
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccountByID(ctx context.Context, id string) (*domain.Account, error)
	InsertAccount(ctx context.Context, account domain.Account) error
	// RefreshPendingAccount overwrites plan, venue and credential of a pending account.
	RefreshPendingAccount(ctx context.Context, account domain.Account) error
	// ActivateAccount moves a non-active account to active and reports whether a row changed.
	ActivateAccount(ctx context.Context, params domain.ActivationParams) (bool, error)

	UpsertSignupRequest(ctx context.Context, request domain.SignupRequest) error
	// FindSignupRequestByID ignores expired requests.
	FindSignupRequestByID(ctx context.Context, id string) (*domain.SignupRequest, error)
	DeleteSignupRequest(ctx context.Context, id string) error

	InsertTenant(ctx context.Context, tenant domain.Tenant) error
	FindTenantByID(ctx context.Context, id string) (*domain.Tenant, error)
	InsertPublicToken(ctx context.Context, token domain.PublicToken) error
	FindPublicTokenByTenant(ctx context.Context, tenantID string) (*domain.PublicToken, error)

	// WithinTx runs fn against a store bound to a single transaction.
	WithinTx(ctx context.Context, fn func(ctx context.Context, store CredentialStore) error) error
}
