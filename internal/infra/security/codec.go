package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

const (
	// DefaultSignupTokenTTL bounds how long an emailed code or link stays usable.
	DefaultSignupTokenTTL = 15 * time.Minute
	// LegacySignupTokenTTL is the short-lived variant used by older clients.
	LegacySignupTokenTTL = 2 * time.Minute

	tokenSeparator = "."
)

// ErrInvalidToken covers every reason a verification token is rejected.
var ErrInvalidToken = errors.New("token: invalid or expired")

// SignedTokenCodec issues base64url(payload).base64url(HMAC-SHA256(secret, payload)) tokens.
type SignedTokenCodec struct {
	secret []byte
	now    func() time.Time
}

// TokenCodecOption customises the codec.
type TokenCodecOption func(*SignedTokenCodec)

// WithTokenClock overrides the wall clock.
func WithTokenClock(now func() time.Time) TokenCodecOption {
	return func(c *SignedTokenCodec) {
		if now != nil {
			c.now = now
		}
	}
}

// NewSignedTokenCodec builds a codec keyed with secret.
func NewSignedTokenCodec(secret string, opts ...TokenCodecOption) (*SignedTokenCodec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("token: signing secret is required")
	}
	c := &SignedTokenCodec{secret: []byte(secret), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue stamps iat/exp onto claims and signs them.
func (c *SignedTokenCodec) Issue(claims domain.VerificationClaims, ttl time.Duration) (string, error) {
	now := c.now()
	claims.IssuedAt = now.UnixMilli()
	claims.ExpiresAt = now.Add(ttl).UnixMilli()

	raw, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("token: encode payload: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + tokenSeparator + c.sign(payload), nil
}

// Verify checks the signature and expiry and returns the embedded claims.
func (c *SignedTokenCodec) Verify(token string) (domain.VerificationClaims, error) {
	parts := strings.Split(token, tokenSeparator)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.VerificationClaims{}, ErrInvalidToken
	}

	given, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return domain.VerificationClaims{}, ErrInvalidToken
	}
	expected := c.mac(parts[0])
	if !hmac.Equal(given, expected) {
		return domain.VerificationClaims{}, ErrInvalidToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return domain.VerificationClaims{}, ErrInvalidToken
	}
	var claims domain.VerificationClaims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return domain.VerificationClaims{}, ErrInvalidToken
	}
	if claims.ExpiresAt <= c.now().UnixMilli() {
		return domain.VerificationClaims{}, ErrInvalidToken
	}
	return claims, nil
}

func (c *SignedTokenCodec) sign(payload string) string {
	return base64.RawURLEncoding.EncodeToString(c.mac(payload))
}

func (c *SignedTokenCodec) mac(payload string) []byte {
	m := hmac.New(sha256.New, c.secret)
	m.Write([]byte(payload))
	return m.Sum(nil)
}

// CodeDigester keys a verification code to its signup request.
type CodeDigester struct {
	secret []byte
}

// NewCodeDigester builds a digester keyed with secret.
func NewCodeDigester(secret string) *CodeDigester {
	return &CodeDigester{secret: []byte(secret)}
}

// Digest returns base64url(HMAC-SHA256(secret, requestID:code)).
func (d *CodeDigester) Digest(requestID, code string) string {
	m := hmac.New(sha256.New, d.secret)
	m.Write([]byte(requestID + ":" + code))
	return base64.RawURLEncoding.EncodeToString(m.Sum(nil))
}

// Matches compares a candidate code against digest in constant time.
func (d *CodeDigester) Matches(requestID, code, digest string) bool {
	if code == "" || digest == "" {
		return false
	}
	return hmac.Equal([]byte(d.Digest(requestID, code)), []byte(digest))
}
