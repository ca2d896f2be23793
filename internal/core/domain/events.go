package domain

import "time"

// AccountCreatedEvent represents the payload for menu.account.created messages.
type AccountCreatedEvent struct {
	EventID   string
	AccountID string
	Email     string
	Plan      string
	CreatedAt time.Time
}

// AccountActivatedEvent represents the payload for menu.account.activated messages.
type AccountActivatedEvent struct {
	EventID               string
	AccountID             string
	TenantID              string
	Plan                  string
	BillingCustomerID     *string
	BillingSubscriptionID *string
	ActivatedAt           time.Time
}
