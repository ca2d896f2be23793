package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/logger"
	"github.com/arklim/menu-accounts/internal/infra/security"
	"github.com/arklim/menu-accounts/internal/infra/telemetry"
	"github.com/arklim/menu-accounts/internal/repository"
)

// LoginInput is the raw login form plus the caller's address.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// AuthService authenticates owners and maintains their sessions.
type AuthService struct {
	store    port.CredentialStore
	hasher   port.CredentialHasher
	policy   domain.CredentialPolicy
	sessions *SessionManager
	limiter  *RateLimiter
	policies RateLimitPolicies
	metrics  *telemetry.Metrics
	logger   *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	store port.CredentialStore,
	hasher port.CredentialHasher,
	policy domain.CredentialPolicy,
	sessions *SessionManager,
	limiter *RateLimiter,
	policies RateLimitPolicies,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) (*AuthService, error) {
	if store == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("credential hasher is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("session manager is required")
	}
	if policy == nil {
		policy = security.DefaultCredentialValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		store:    store,
		hasher:   hasher,
		policy:   policy,
		sessions: sessions,
		limiter:  limiter,
		policies: policies,
		metrics:  metrics,
		logger:   log,
	}, nil
}

// Login checks credentials and issues a session.
// Unknown email, malformed email and wrong credential are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (IssuedSession, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "auth.Login")
	defer span.End()

	if strings.TrimSpace(in.Email) == "" || in.Password == "" {
		s.metrics.LoginOutcome("missing_fields")
		return IssuedSession{}, domain.ErrMissingFields
	}

	if err := s.limiter.Enforce(ctx, in.IP, s.policies.LoginIP); err != nil {
		s.metrics.LoginOutcome("rate_limited")
		return IssuedSession{}, err
	}

	// Shape failures stop before the email limit so they never spend its budget.
	email := domain.NormalizeEmail(in.Email)
	if !domain.ValidEmail(email) || s.policy.Validate(in.Password) != nil {
		s.metrics.LoginOutcome("invalid_credentials")
		return IssuedSession{}, domain.ErrInvalidCredentials
	}

	if err := s.limiter.Enforce(ctx, email, s.policies.LoginEmail); err != nil {
		s.metrics.LoginOutcome("rate_limited")
		s.logger.Info("login rate limited",
			zap.String("request_id", logger.RequestIDFromContext(ctx)),
			zap.String("email", logger.MaskEmail(email)),
		)
		return IssuedSession{}, err
	}

	account, err := s.store.FindAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.hasher.VerifyDummy(in.Password)
			s.metrics.LoginOutcome("invalid_credentials")
			return IssuedSession{}, domain.ErrInvalidCredentials
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup account")
		return IssuedSession{}, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := s.hasher.Verify(in.Password, account.CredentialHash)
	if err != nil {
		s.logger.Warn("stored credential hash unreadable",
			zap.String("request_id", logger.RequestIDFromContext(ctx)),
			zap.String("account_id", account.ID),
			zap.Error(err),
		)
		s.metrics.LoginOutcome("invalid_credentials")
		return IssuedSession{}, domain.ErrInvalidCredentials
	}
	if !ok {
		s.metrics.LoginOutcome("invalid_credentials")
		return IssuedSession{}, domain.ErrInvalidCredentials
	}

	issued, err := s.sessions.Issue(*account)
	if err != nil {
		return IssuedSession{}, err
	}

	span.SetAttributes(
		attribute.String("account.id", account.ID),
		attribute.String("account.status", string(account.Status)),
	)
	s.metrics.LoginOutcome("success")
	return issued, nil
}

// Refresh reissues the session described by the cookie value.
func (s *AuthService) Refresh(ctx context.Context, cookieValue string) (IssuedSession, error) {
	descriptor := s.sessions.Parse(cookieValue)
	if descriptor == nil {
		return IssuedSession{}, domain.ErrUnauthorized
	}
	return s.sessions.Refresh(ctx, descriptor)
}

// Session returns the descriptor carried by the cookie value or UNAUTHORIZED.
func (s *AuthService) Session(cookieValue string) (domain.SessionDescriptor, error) {
	descriptor := s.sessions.Parse(cookieValue)
	if descriptor == nil {
		return domain.SessionDescriptor{}, domain.ErrUnauthorized
	}
	return *descriptor, nil
}
