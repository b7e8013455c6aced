// Package iam holds the shared identity types used by the tenant,
// application and end-user domains: login credentials, user profiles and
// rotatable credential secrets (API keys).
package iam

// LoginCredential is an account/password pair. The password is stored hashed
// after registration; the raw value only exists on the inbound request.
type LoginCredential struct {
	Account  string `db:"account" json:"account"`
	Password string `db:"password" json:"password,omitempty"`
}

// HasAccount reports whether the account field is present and non-empty.
func (c LoginCredential) HasAccount() bool {
	return c.Account != ""
}

// HasPassword reports whether the password field is present and non-empty.
func (c LoginCredential) HasPassword() bool {
	return c.Password != ""
}

// IsComplete reports whether both account and password are set.
func (c LoginCredential) IsComplete() bool {
	return c.HasAccount() && c.HasPassword()
}
