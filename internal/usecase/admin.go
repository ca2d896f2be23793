package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/logger"
	"github.com/arklim/menu-accounts/internal/infra/telemetry"
	"github.com/arklim/menu-accounts/internal/repository"
)

// TenantInput is an operator request for a new tenant.
type TenantInput struct {
	Name            string
	Languages       []string
	DefaultLanguage string
}

// ProvisionedTenant describes a tenant created by an operator.
type ProvisionedTenant struct {
	TenantID string
	Link     PublicMenuLink
}

// ProvisionedAccount describes an owner account created by an operator.
type ProvisionedAccount struct {
	AccountID string
	TenantID  string
}

// AdminService lets platform operators provision tenants and owner accounts
// outside the paid signup flow.
type AdminService struct {
	store   port.CredentialStore
	hasher  port.CredentialHasher
	policy  domain.CredentialPolicy
	baseURL string
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewAdminService constructs an AdminService instance.
func NewAdminService(
	store port.CredentialStore,
	hasher port.CredentialHasher,
	policy domain.CredentialPolicy,
	baseURL string,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) (*AdminService, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("credential hasher is required")
	}
	if policy == nil {
		return nil, fmt.Errorf("credential policy is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminService{
		store:   store,
		hasher:  hasher,
		policy:  policy,
		baseURL: strings.TrimRight(baseURL, "/"),
		metrics: metrics,
		logger:  log.Named("admin"),
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateTenant provisions a tenant with an empty menu and its public token.
func (s *AdminService) CreateTenant(ctx context.Context, in TenantInput) (ProvisionedTenant, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.CreateTenant")
	defer span.End()

	name := strings.TrimSpace(in.Name)
	if name == "" {
		s.metrics.ProvisionOutcome("tenant", "invalid")
		return ProvisionedTenant{}, domain.ErrMissingFields
	}

	tenant := domain.NewTenant(uuid.NewString(), name, s.now()).WithLanguages(in.Languages, in.DefaultLanguage)

	var token domain.PublicToken
	err := s.store.WithinTx(ctx, func(ctx context.Context, store port.CredentialStore) error {
		var err error
		token, err = provisionTenant(ctx, store, tenant)
		return err
	})
	if err != nil {
		s.metrics.ProvisionOutcome("tenant", "failed")
		span.RecordError(err)
		return ProvisionedTenant{}, err
	}

	s.metrics.ProvisionOutcome("tenant", "created")
	s.logger.Info("tenant provisioned",
		zap.String("request_id", logger.RequestIDFromContext(ctx)),
		zap.String("tenant_id", tenant.ID),
		zap.Strings("languages", tenant.Languages),
	)
	span.SetAttributes(attribute.String("tenant.id", tenant.ID))
	return ProvisionedTenant{TenantID: tenant.ID, Link: newPublicMenuLink(s.baseURL, token)}, nil
}

// CreateAccount adds an active owner account to an existing tenant. The email
// must not belong to any account yet.
func (s *AdminService) CreateAccount(ctx context.Context, in domain.AccountInput) (ProvisionedAccount, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "admin.CreateAccount")
	defer span.End()

	parsed, err := domain.ParseAccountInput(in, s.policy)
	if err != nil {
		s.metrics.ProvisionOutcome("account", "invalid")
		return ProvisionedAccount{}, err
	}
	if _, err := uuid.Parse(parsed.TenantID); err != nil {
		s.metrics.ProvisionOutcome("account", "invalid")
		return ProvisionedAccount{}, domain.NewError(domain.CodeInvalidVenue, err)
	}

	hash, err := s.hasher.Hash(parsed.Credential)
	if err != nil {
		return ProvisionedAccount{}, fmt.Errorf("hash credential: %w", err)
	}

	now := s.now()
	tenantID := parsed.TenantID
	account := domain.Account{
		ID:             uuid.NewString(),
		Email:          parsed.Email,
		CredentialHash: hash,
		Role:           domain.RoleOwner,
		Status:         domain.AccountStatusActive,
		TenantID:       &tenantID,
		CreatedAt:      now,
		ActivatedAt:    &now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, store port.CredentialStore) error {
		tenant, err := store.FindTenantByID(ctx, tenantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return domain.NewError(domain.CodeInvalidVenue, err)
			}
			return fmt.Errorf("lookup tenant: %w", err)
		}
		account.VenueName = tenant.Name
		return insertNewAccount(ctx, store, account)
	})
	if err != nil {
		s.metrics.ProvisionOutcome("account", provisionFailure(err))
		if domain.CodeOf(err) == domain.CodeInternal {
			span.RecordError(err)
		}
		return ProvisionedAccount{}, err
	}

	s.metrics.ProvisionOutcome("account", "created")
	s.logger.Info("owner account provisioned",
		zap.String("request_id", logger.RequestIDFromContext(ctx)),
		zap.String("account_id", account.ID),
		zap.String("tenant_id", tenantID),
		zap.String("email", logger.MaskEmail(account.Email)),
	)
	return ProvisionedAccount{AccountID: account.ID, TenantID: tenantID}, nil
}

// EnsureAdmin creates the operator account named by email when no account
// holds that address. It reports whether an account was created.
func (s *AdminService) EnsureAdmin(ctx context.Context, email, credential string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if !domain.ValidEmail(email) {
		return false, domain.ErrInvalidEmail
	}
	if err := s.policy.Validate(credential); err != nil {
		return false, domain.NewError(domain.CodeWeakCredential, err)
	}

	existing, err := s.store.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != domain.RoleAdmin {
			s.logger.Warn("bootstrap admin email belongs to a non-admin account",
				zap.String("email", logger.MaskEmail(email)),
			)
		}
		return false, nil
	case !errors.Is(err, repository.ErrNotFound):
		return false, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := s.hasher.Hash(credential)
	if err != nil {
		return false, fmt.Errorf("hash credential: %w", err)
	}
	now := s.now()
	err = insertNewAccount(ctx, s.store, domain.Account{
		ID:             uuid.NewString(),
		Email:          email,
		CredentialHash: hash,
		Role:           domain.RoleAdmin,
		Status:         domain.AccountStatusActive,
		CreatedAt:      now,
		ActivatedAt:    &now,
	})
	if errors.Is(err, domain.ErrEmailExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	s.logger.Info("bootstrap admin created", zap.String("email", logger.MaskEmail(email)))
	return true, nil
}

// insertNewAccount inserts account unless its email is taken, in which case
// it returns ErrEmailExists.
func insertNewAccount(ctx context.Context, store port.CredentialStore, account domain.Account) error {
	if _, err := store.FindAccountByEmail(ctx, account.Email); err == nil {
		return domain.ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("lookup account: %w", err)
	}

	if err := store.InsertAccount(ctx, account); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return domain.NewError(domain.CodeEmailExists, err)
		}
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func provisionFailure(err error) string {
	switch domain.CodeOf(err) {
	case domain.CodeEmailExists:
		return "email_exists"
	case domain.CodeInvalidVenue:
		return "unknown_tenant"
	default:
		return "failed"
	}
}
