package domain

import "time"

// SessionDescriptor is the authenticated identity attached to a browser session.
// Status is a snapshot taken at issuance time.
type SessionDescriptor struct {
	AccountID string
	Role      Role
	TenantID  *string
	Status    AccountStatus
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// NewSessionDescriptor snapshots an account into a descriptor.
func NewSessionDescriptor(account Account, issuedAt time.Time, ttl time.Duration) SessionDescriptor {
	var tenantID *string
	if account.TenantID != nil {
		id := *account.TenantID
		tenantID = &id
	}
	return SessionDescriptor{
		AccountID: account.ID,
		Role:      account.Role,
		TenantID:  tenantID,
		Status:    account.Status,
		IssuedAt:  issuedAt,
		ExpiresAt: issuedAt.Add(ttl),
	}
}

// IsActive reports whether the snapshot allows tenant operations.
func (d SessionDescriptor) IsActive() bool {
	return d.Status == AccountStatusActive
}
