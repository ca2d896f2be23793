package port

import (
	"time"

	"github.com/arklim/menu-accounts/internal/core/domain"
)

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// CredentialHasher hashes and verifies secrets using the configured algorithm.
type CredentialHasher interface {
	Hash(credential string) (string, error)
	Verify(credential string, encoded string) (bool, error)
	// VerifyDummy spends one verification on a fixed hash when no account matched.
	VerifyDummy(credential string)
}

// TokenCodec issues and verifies signed verification tokens.
type TokenCodec interface {
	Issue(claims domain.VerificationClaims, ttl time.Duration) (string, error)
	Verify(token string) (domain.VerificationClaims, error)
}

// CodeDigester binds a short verification code to a signup request.
type CodeDigester interface {
	Digest(requestID, code string) string
	Matches(requestID, code, digest string) bool
}
