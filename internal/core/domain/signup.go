package domain

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SignupState names a position in the signup flow as reported to callers.
type SignupState string

const (
	SignupStateCodeSent              SignupState = "CODE_SENT"
	SignupStateCodeVerified          SignupState = "CODE_VERIFIED"
	SignupStateCheckoutPending       SignupState = "CHECKOUT_PENDING"
	SignupStateActive                SignupState = "ACTIVE"
	SignupStateAlreadyActive         SignupState = "ALREADY_ACTIVE"
	SignupStateExistingAccountNotice SignupState = "EXISTING_ACCOUNT_NOTICE"
)

// Reported maps internal states to what the caller is allowed to see.
// EXISTING_ACCOUNT_NOTICE is indistinguishable from CODE_SENT.
func (s SignupState) Reported() SignupState {
	if s == SignupStateExistingAccountNotice {
		return SignupStateCodeSent
	}
	return s
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// CredentialPolicy decides whether a plaintext credential is strong enough.
type CredentialPolicy interface {
	Validate(credential string) error
}

// SignupInput is the raw, untrusted signup form.
type SignupInput struct {
	Email      string
	Credential string
	VenueName  string
	Plan       string
}

// SignupDetails is a validated signup form.
type SignupDetails struct {
	Email      string
	Credential string
	VenueName  string
	Plan       string
}

// ParseSignupDetails validates raw input and returns either typed details or exactly one coded error.
// Checks run in order: presence, email shape, venue, credential strength, plan.
func ParseSignupDetails(in SignupInput, policy CredentialPolicy, plans []string) (SignupDetails, error) {
	details := SignupDetails{
		Email:      NormalizeEmail(in.Email),
		Credential: in.Credential,
		VenueName:  strings.TrimSpace(in.VenueName),
		Plan:       strings.TrimSpace(in.Plan),
	}

	if err := validation.Validate(in.Email, validation.Required); err != nil {
		return SignupDetails{}, NewError(CodeMissingFields, err)
	}
	if err := validation.Validate(in.Credential, validation.Required); err != nil {
		return SignupDetails{}, NewError(CodeMissingFields, err)
	}
	if err := validation.Validate(in.VenueName, validation.Required); err != nil {
		return SignupDetails{}, NewError(CodeMissingFields, err)
	}
	if err := validation.Validate(in.Plan, validation.Required); err != nil {
		return SignupDetails{}, NewError(CodeMissingFields, err)
	}
	if err := validation.Validate(details.Email, validation.Required, validation.Match(emailPattern)); err != nil {
		return SignupDetails{}, NewError(CodeInvalidEmail, err)
	}
	if err := validation.Validate(details.VenueName, validation.Required); err != nil {
		return SignupDetails{}, NewError(CodeInvalidVenue, err)
	}
	if policy == nil {
		return SignupDetails{}, NewError(CodeInternal, errors.New("credential policy not configured"))
	}
	if err := policy.Validate(in.Credential); err != nil {
		return SignupDetails{}, NewError(CodeWeakCredential, err)
	}
	if err := ValidatePlan(details.Plan, plans); err != nil {
		return SignupDetails{}, err
	}
	return details, nil
}

// ValidatePlan checks plan membership in the configured catalog.
func ValidatePlan(plan string, plans []string) error {
	allowed := make([]any, 0, len(plans))
	for _, p := range plans {
		allowed = append(allowed, p)
	}
	if err := validation.Validate(plan, validation.Required, validation.In(allowed...)); err != nil {
		return NewError(CodeInvalidPlan, err)
	}
	return nil
}

// ValidEmail reports whether email has the minimal address shape.
func ValidEmail(email string) bool {
	return validation.Validate(email, validation.Required, validation.Match(emailPattern)) == nil
}

// AccountInput is an operator-supplied owner account for an existing tenant.
type AccountInput struct {
	Email      string
	Credential string
	TenantID   string
}

// ParseAccountInput applies the signup email and credential rules to an
// operator-supplied account. Checks run in order: presence, email shape, credential strength.
func ParseAccountInput(in AccountInput, policy CredentialPolicy) (AccountInput, error) {
	parsed := AccountInput{
		Email:      NormalizeEmail(in.Email),
		Credential: in.Credential,
		TenantID:   strings.TrimSpace(in.TenantID),
	}

	if err := validation.ValidateStruct(&parsed,
		validation.Field(&parsed.Email, validation.Required),
		validation.Field(&parsed.Credential, validation.Required),
		validation.Field(&parsed.TenantID, validation.Required),
	); err != nil {
		return AccountInput{}, NewError(CodeMissingFields, err)
	}
	if !ValidEmail(parsed.Email) {
		return AccountInput{}, ErrInvalidEmail
	}
	if policy == nil {
		return AccountInput{}, NewError(CodeInternal, errors.New("credential policy not configured"))
	}
	if err := policy.Validate(parsed.Credential); err != nil {
		return AccountInput{}, NewError(CodeWeakCredential, err)
	}
	return parsed, nil
}
