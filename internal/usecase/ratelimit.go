package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/config"
	"github.com/arklim/menu-accounts/internal/infra/logger"
	"github.com/arklim/menu-accounts/internal/infra/telemetry"
)

const defaultStoreTimeout = 250 * time.Millisecond

// Policy names as they appear in keys, metrics and logs.
const (
	PolicyLoginIP    = "login_ip"
	PolicyLoginEmail = "login_email"
	PolicySignupIP   = "signup_ip"
	PolicyVerifyCode = "verify_code"
)

// RateLimitExceeded is the cause attached to RATE_LIMITED errors.
type RateLimitExceeded struct {
	Policy   string
	Decision domain.Decision
}

func (e *RateLimitExceeded) Error() string {
	return fmt.Sprintf("rate limit %s exceeded", e.Policy)
}

// RateLimitPolicies is the configured set of sliding-window rules.
type RateLimitPolicies struct {
	LoginIP    domain.RateLimitPolicy
	LoginEmail domain.RateLimitPolicy
	SignupIP   domain.RateLimitPolicy
	VerifyCode domain.RateLimitPolicy
}

// PoliciesFromConfig converts configuration into named policies.
func PoliciesFromConfig(cfg config.RateLimitSettings) RateLimitPolicies {
	return RateLimitPolicies{
		LoginIP:    domain.RateLimitPolicy{Name: PolicyLoginIP, Limit: cfg.LoginIP.Limit, Window: cfg.LoginIP.Window},
		LoginEmail: domain.RateLimitPolicy{Name: PolicyLoginEmail, Limit: cfg.LoginEmail.Limit, Window: cfg.LoginEmail.Window},
		SignupIP:   domain.RateLimitPolicy{Name: PolicySignupIP, Limit: cfg.SignupIP.Limit, Window: cfg.SignupIP.Window},
		VerifyCode: domain.RateLimitPolicy{Name: PolicyVerifyCode, Limit: cfg.VerifyCode.Limit, Window: cfg.VerifyCode.Window},
	}
}

// RateLimiter enforces sliding-window policies against a shared store.
// It never blocks a request because the store is unavailable.
type RateLimiter struct {
	store   port.RateLimitStore
	timeout time.Duration
	metrics *telemetry.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter constructs a limiter. A nil store admits every request.
func NewRateLimiter(store port.RateLimitStore, timeout time.Duration, metrics *telemetry.Metrics, log *zap.Logger) *RateLimiter {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		store:   store,
		timeout: timeout,
		metrics: metrics,
		logger:  log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Check counts one attempt for key under policy and reports whether it is admitted.
// Rejected attempts are not recorded.
func (l *RateLimiter) Check(ctx context.Context, key string, policy domain.RateLimitPolicy) domain.Decision {
	now := time.Now().UTC()
	if l != nil {
		now = l.now()
	}
	admit := domain.Decision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit,
		ResetAt:   now.Add(policy.Window),
	}
	if l == nil || l.store == nil || policy.Limit <= 0 || policy.Window <= 0 {
		return admit
	}

	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	identifier := policy.Name + ":" + key

	if err := l.store.TrimWindow(ctx, identifier, policy.Window, now); err != nil {
		return l.failOpen(ctx, policy, admit, err)
	}

	count, err := l.store.CountAttempts(ctx, identifier, policy.Window, now)
	if err != nil {
		return l.failOpen(ctx, policy, admit, err)
	}

	if count >= policy.Limit {
		resetAt := now.Add(policy.Window)
		oldest, ok, err := l.store.OldestAttempt(ctx, identifier, policy.Window, now)
		if err == nil && ok {
			resetAt = oldest.Add(policy.Window)
		}
		l.metrics.RateLimited(policy.Name)
		return domain.Decision{
			Allowed:   false,
			Limit:     policy.Limit,
			Remaining: 0,
			ResetAt:   resetAt,
		}
	}

	if err := l.store.RecordAttempt(ctx, identifier, now, 2*policy.Window); err != nil {
		return l.failOpen(ctx, policy, admit, err)
	}

	return domain.Decision{
		Allowed:   true,
		Limit:     policy.Limit,
		Remaining: policy.Limit - count - 1,
		ResetAt:   now.Add(policy.Window),
	}
}

// Enforce wraps Check and converts a rejection into a RATE_LIMITED error.
func (l *RateLimiter) Enforce(ctx context.Context, key string, policy domain.RateLimitPolicy) error {
	decision := l.Check(ctx, key, policy)
	if decision.Allowed {
		return nil
	}
	return domain.NewError(domain.CodeRateLimited, &RateLimitExceeded{Policy: policy.Name, Decision: decision})
}

func (l *RateLimiter) failOpen(ctx context.Context, policy domain.RateLimitPolicy, admit domain.Decision, err error) domain.Decision {
	l.metrics.RateLimitFailOpen(policy.Name)
	l.logger.Warn("rate limit store unavailable, admitting request",
		zap.String("request_id", logger.RequestIDFromContext(ctx)),
		zap.String("policy", policy.Name),
		zap.Error(err),
	)
	return admit
}
