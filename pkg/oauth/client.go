// Package oauth defines the OAuth2 client metadata model, the credential
// registry abstraction and the token issuance surface of the broker.
package oauth

import (
	"net/http"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// ClientRecord is the registered OAuth2 client metadata for a tenant or an
// application. It is a pure key-value payload: the registry knows nothing
// about the entity the record was derived from.
type ClientRecord struct {
	ClientID        kernel.ClientID `db:"client_id" json:"client_id"`
	Secret          string          `db:"secret" json:"secret"`
	GrantTypes      []string        `db:"grant_types" json:"grant_types"`
	Authorities     []string        `db:"authorities" json:"authorities"`
	Scopes          []string        `db:"scopes" json:"scopes"`
	RedirectURIs    []string        `db:"redirect_uris" json:"redirect_uris"`
	AccessTokenTTL  int             `db:"access_token_ttl" json:"access_token_ttl"`   // seconds
	RefreshTokenTTL int             `db:"refresh_token_ttl" json:"refresh_token_ttl"` // seconds
}

// AllowsGrantType reports whether the client may use the given grant type.
func (c ClientRecord) AllowsGrantType(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// HasAuthority reports whether the client carries the given authority.
func (c ClientRecord) HasAuthority(authority string) bool {
	for _, a := range c.Authorities {
		if a == authority {
			return true
		}
	}
	return false
}

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("CLIENT")

var (
	CodeClientNotFound = ErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "OAuth2 client not found")
	CodeBadCredentials = ErrRegistry.Register("BAD_CREDENTIALS", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid client credentials")
)

func ErrClientNotFound() *errx.Error {
	return ErrRegistry.New(CodeClientNotFound)
}

func ErrBadCredentials() *errx.Error {
	return ErrRegistry.New(CodeBadCredentials)
}
