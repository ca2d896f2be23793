package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

// ErrInvalidSession indicates a session cookie that cannot be trusted.
var ErrInvalidSession = errors.New("jwt: invalid session token")

// SessionClaims carries the session descriptor inside an HS256 JWT.
type SessionClaims struct {
	Role     string  `json:"role"`
	TenantID *string `json:"tid"`
	Status   string  `json:"status"`
	jwt.RegisteredClaims
}

// SessionSigner signs and parses session tokens with a shared secret.
type SessionSigner struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewSessionSigner constructs a signer. now may be nil.
func NewSessionSigner(secret, issuer string, now func() time.Time) (*SessionSigner, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("jwt: session secret is required")
	}
	if now == nil {
		now = time.Now
	}
	return &SessionSigner{secret: []byte(secret), issuer: strings.TrimSpace(issuer), now: now}, nil
}

// Sign encodes descriptor as a compact JWT.
func (s *SessionSigner) Sign(descriptor domain.SessionDescriptor) (string, error) {
	if strings.TrimSpace(descriptor.AccountID) == "" {
		return "", fmt.Errorf("jwt: account id is required")
	}
	claims := SessionClaims{
		Role:     string(descriptor.Role),
		TenantID: descriptor.TenantID,
		Status:   string(descriptor.Status),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   descriptor.AccountID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(descriptor.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(descriptor.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("jwt: sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies signature, algorithm, issuer and expiry and returns the descriptor.
func (s *SessionSigner) Parse(value string) (domain.SessionDescriptor, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims SessionClaims
	token, err := jwt.ParseWithClaims(value, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return domain.SessionDescriptor{}, ErrInvalidSession
	}
	if claims.Subject == "" {
		return domain.SessionDescriptor{}, ErrInvalidSession
	}

	descriptor := domain.SessionDescriptor{
		AccountID: claims.Subject,
		Role:      domain.Role(claims.Role),
		TenantID:  claims.TenantID,
		Status:    domain.AccountStatus(claims.Status),
	}
	if claims.IssuedAt != nil {
		descriptor.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		descriptor.ExpiresAt = claims.ExpiresAt.Time
	}
	return descriptor, nil
}
