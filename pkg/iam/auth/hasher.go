package auth

import (
	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the pluggable one-way hash+verify function used for
// tenant and end-user passwords.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Matches(raw, hashed string) bool
}

// BcryptHasher implements PasswordHasher with bcrypt.
type BcryptHasher struct {
	cost int
}

func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{cost: bcrypt.DefaultCost}
}

func (h *BcryptHasher) Hash(raw string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(raw), h.cost)
	if err != nil {
		return "", errx.Wrap(err, "failed to hash password", errx.TypeInternal)
	}
	return string(hashed), nil
}

func (h *BcryptHasher) Matches(raw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(raw)) == nil
}
