package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/core/port"
	"github.com/arklim/menu-accounts/internal/infra/security"
	"github.com/arklim/menu-accounts/internal/repository"
)

const defaultSessionTTL = 24 * time.Hour

// IssuedSession is a signed cookie value and the descriptor it encodes.
type IssuedSession struct {
	Value      string
	Descriptor domain.SessionDescriptor
}

// SessionManager issues, parses and refreshes session cookies.
type SessionManager struct {
	signer *security.SessionSigner
	store  port.CredentialStore
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionManager constructs a SessionManager. ttl <= 0 selects 24 hours.
func NewSessionManager(signer *security.SessionSigner, store port.CredentialStore, ttl time.Duration) (*SessionManager, error) {
	if signer == nil {
		return nil, fmt.Errorf("session signer is required")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &SessionManager{
		signer: signer,
		store:  store,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// TTL reports the session lifetime used for cookie Max-Age.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Issue snapshots account into a signed session.
func (m *SessionManager) Issue(account domain.Account) (IssuedSession, error) {
	descriptor := domain.NewSessionDescriptor(account, m.now().Truncate(time.Second), m.ttl)
	value, err := m.signer.Sign(descriptor)
	if err != nil {
		return IssuedSession{}, fmt.Errorf("sign session: %w", err)
	}
	return IssuedSession{Value: value, Descriptor: descriptor}, nil
}

// Parse returns the descriptor carried by value, or nil when the value is
// missing, malformed, forged or expired.
func (m *SessionManager) Parse(value string) *domain.SessionDescriptor {
	if value == "" {
		return nil
	}
	descriptor, err := m.signer.Parse(value)
	if err != nil {
		return nil
	}
	return &descriptor
}

// Refresh re-reads the account behind descriptor and issues a fresh session
// reflecting its current role, tenant and status.
func (m *SessionManager) Refresh(ctx context.Context, descriptor *domain.SessionDescriptor) (IssuedSession, error) {
	if descriptor == nil {
		return IssuedSession{}, domain.ErrUnauthorized
	}
	if m.store == nil {
		return IssuedSession{}, fmt.Errorf("credential store is not configured")
	}

	account, err := m.store.FindAccountByID(ctx, descriptor.AccountID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return IssuedSession{}, domain.NewError(domain.CodeUnauthorized, err)
		}
		return IssuedSession{}, fmt.Errorf("lookup account: %w", err)
	}
	return m.Issue(*account)
}
