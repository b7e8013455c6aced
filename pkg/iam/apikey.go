package iam

import (
	"crypto/rand"
	"math/big"
	"time"
)

// DefaultSecretLength is the length used for tenant and application API keys.
const DefaultSecretLength = 32

const secretCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// CredentialSecret is a rotatable opaque API key with issue and expiry
// timestamps. Tenants own exactly one; applications carry theirs inline.
type CredentialSecret struct {
	Secret    string    `db:"api_key" json:"api_key"`
	IssuedAt  time.Time `db:"api_key_issued_at" json:"issued_at"`
	ExpiresAt time.Time `db:"api_key_expires_at" json:"expires_at"`
}

// IsZero reports whether the secret was never issued.
func (s CredentialSecret) IsZero() bool {
	return s.Secret == ""
}

// IsExpired reports whether the secret is past its expiry.
func (s CredentialSecret) IsExpired() bool {
	return !s.ExpiresAt.IsZero() && time.Now().After(s.ExpiresAt)
}

// Expire marks the secret as expired now. Calling it on an already expired
// secret is a no-op so that repeated termination does not move the timestamp.
func (s *CredentialSecret) Expire() {
	if s.IsExpired() {
		return
	}
	s.ExpiresAt = time.Now().UTC()
}

// GenerateCredentialSecret produces a secret of exactly length random
// characters issued now. A nil expireAt defaults to one month from now.
// It panics only on entropy-source exhaustion.
func GenerateCredentialSecret(length int, expireAt *time.Time) CredentialSecret {
	now := time.Now().UTC()

	expiry := now.AddDate(0, 1, 0)
	if expireAt != nil {
		expiry = *expireAt
	}

	return CredentialSecret{
		Secret:    randomString(length),
		IssuedAt:  now,
		ExpiresAt: expiry,
	}
}

func randomString(length int) string {
	max := big.NewInt(int64(len(secretCharset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("iam: entropy source exhausted: " + err.Error())
		}
		b[i] = secretCharset[n.Int64()]
	}
	return string(b)
}
