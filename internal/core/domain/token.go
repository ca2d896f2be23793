package domain

// VerificationPurpose distinguishes tokens that require the emailed code from link tokens.
type VerificationPurpose string

const (
	VerificationPurposeCode VerificationPurpose = "code"
	VerificationPurposeLink VerificationPurpose = "link"
)

// VerificationClaims is the signed payload carried by a verification token.
// IssuedAt and ExpiresAt are unix milliseconds and are set by the codec.
type VerificationClaims struct {
	RequestID  string              `json:"rid"`
	Email      string              `json:"email"`
	Purpose    VerificationPurpose `json:"pur"`
	CodeDigest string              `json:"cd,omitempty"`
	IssuedAt   int64               `json:"iat"`
	ExpiresAt  int64               `json:"exp"`
}
