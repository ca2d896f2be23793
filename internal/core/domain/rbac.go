package domain

// Role identifies what an account may do.
type Role string

const (
	// RoleOwner manages exactly one tenant.
	RoleOwner Role = "owner"
	// RoleAdmin is the platform operator and is not bound to a tenant.
	RoleAdmin Role = "admin"
)

// CanAccessTenant reports whether a session may act on the given tenant.
func (d SessionDescriptor) CanAccessTenant(tenantID string) bool {
	if d.Role == RoleAdmin {
		return true
	}
	return d.TenantID != nil && *d.TenantID == tenantID
}
