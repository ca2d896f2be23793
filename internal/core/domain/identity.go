package domain

import (
	"strings"
	"time"
)

// AccountStatus enumerates possible account states.
type AccountStatus string

const (
	AccountStatusPending AccountStatus = "pending"
	AccountStatusActive  AccountStatus = "active"
)

// Account mirrors the persisted representation in the accounts table.
type Account struct {
	ID                    string
	Email                 string
	CredentialHash        string
	Role                  Role
	Status                AccountStatus
	TenantID              *string
	Plan                  string
	VenueName             string
	BillingCustomerID     *string
	BillingSubscriptionID *string
	CreatedAt             time.Time
	ActivatedAt           *time.Time
}

// IsActive reports whether the account completed payment activation.
func (a Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// SignupRequest is the transient record of an unconfirmed signup attempt, keyed by normalized email.
type SignupRequest struct {
	ID             string
	Email          string
	Plan           string
	VenueName      string
	CredentialHash string
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// IsExpired reports whether the request has elapsed its validity window.
func (r SignupRequest) IsExpired(at time.Time) bool {
	return !r.ExpiresAt.After(at)
}

// Tenant is one venue's isolated menu and configuration.
type Tenant struct {
	ID              string
	Name            string
	Languages       []string
	DefaultLanguage string
	Menu            Menu
	MenuConfig      MenuConfig
	CreatedAt       time.Time
}

// Menu is stored opaquely; only its empty shape matters to provisioning.
type Menu struct {
	Categories []any `json:"categories"`
}

// MenuConfig holds presentation defaults for a freshly provisioned tenant.
type MenuConfig struct {
	WithImages          bool   `json:"withImages"`
	MenuBackgroundColor string `json:"menuBackgroundColor"`
	Currency            string `json:"currency"`
	MenuImage           string `json:"menuImage"`
}

// NewTenant builds a tenant with an empty menu and the default configuration.
func NewTenant(id, name string, at time.Time) Tenant {
	return Tenant{
		ID:              id,
		Name:            strings.TrimSpace(name),
		Languages:       []string{"en", "de"},
		DefaultLanguage: "en",
		Menu:            Menu{Categories: []any{}},
		MenuConfig: MenuConfig{
			WithImages:          false,
			MenuBackgroundColor: "#0f172a",
			Currency:            "€",
			MenuImage:           "fastFood",
		},
		CreatedAt: at,
	}
}

// WithLanguages returns t serving languages with defaultLanguage first.
// Blank and repeated entries are dropped; with nothing left t is returned unchanged.
func (t Tenant) WithLanguages(languages []string, defaultLanguage string) Tenant {
	cleaned := make([]string, 0, len(languages)+1)
	seen := make(map[string]struct{}, len(languages)+1)
	add := func(lang string) {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			return
		}
		if _, ok := seen[lang]; ok {
			return
		}
		seen[lang] = struct{}{}
		cleaned = append(cleaned, lang)
	}

	add(defaultLanguage)
	for _, lang := range languages {
		add(lang)
	}
	if len(cleaned) == 0 {
		return t
	}
	if len(languages) == 0 {
		// only a default was given; keep the current set behind it
		for _, lang := range t.Languages {
			add(lang)
		}
	}

	t.DefaultLanguage = cleaned[0]
	t.Languages = cleaned
	return t
}

// PublicToken is the sharing token that exposes a tenant's public menu.
type PublicToken struct {
	Token      string
	TenantID   string
	TenantName string
	Active     bool
	CreatedAt  time.Time
}

// ActivationParams describes the single update that moves a pending account to active.
type ActivationParams struct {
	AccountID             string
	TenantID              string
	BillingCustomerID     *string
	BillingSubscriptionID *string
	ActivatedAt           time.Time
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
