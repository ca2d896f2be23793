package security

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

const defaultMinCredentialLength = 8

// CredentialRule is one named requirement on a plaintext credential.
type CredentialRule struct {
	Name  string
	Hint  string
	Check func(credential string) bool
}

// CredentialViolation names the first rule a credential failed. Hint is safe
// to show to the person choosing the credential.
type CredentialViolation struct {
	Rule string
	Hint string
}

func (v *CredentialViolation) Error() string {
	return "credential rejected by " + v.Rule + ": " + v.Hint
}

// CredentialValidator checks credentials against an ordered rule list and
// satisfies domain.CredentialPolicy.
type CredentialValidator struct {
	rules []CredentialRule
}

func NewCredentialValidator(rules ...CredentialRule) *CredentialValidator {
	return &CredentialValidator{rules: append([]CredentialRule(nil), rules...)}
}

// DefaultCredentialValidator is the owner credential policy: at least eight
// characters mixing lower case, upper case and digits.
func DefaultCredentialValidator() *CredentialValidator {
	return NewCredentialValidator(
		MinLength(defaultMinCredentialLength),
		Contains("lowercase", unicode.IsLower),
		Contains("uppercase", unicode.IsUpper),
		Contains("digit", unicode.IsDigit),
	)
}

// Validate returns a *CredentialViolation for the first failing rule.
func (v *CredentialValidator) Validate(credential string) error {
	if v == nil {
		return errors.New("credential validator not configured")
	}
	for _, rule := range v.rules {
		if !rule.Check(credential) {
			return &CredentialViolation{Rule: rule.Name, Hint: rule.Hint}
		}
	}
	return nil
}

// MinLength counts runes, so multi-byte characters count once.
func MinLength(n int) CredentialRule {
	return CredentialRule{
		Name: "min_length",
		Hint: fmt.Sprintf("use at least %d characters", n),
		Check: func(credential string) bool {
			return utf8.RuneCountInString(credential) >= n
		},
	}
}

// Contains requires one rune accepted by class.
func Contains(name string, class func(rune) bool) CredentialRule {
	return CredentialRule{
		Name: name,
		Hint: "add a " + name + " character",
		Check: func(credential string) bool {
			for _, r := range credential {
				if class(r) {
					return true
				}
			}
			return false
		},
	}
}
