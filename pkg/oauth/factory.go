package oauth

import (
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
)

// Default client metadata applied when the entity carries no override.
var (
	defaultGrantTypes = []string{
		GrantTypeAuthorizationCode,
		GrantTypePassword,
		GrantTypeClientCredentials,
		GrantTypeImplicit,
		GrantTypeRefreshToken,
	}
	defaultScopes = []string{"read", "write", "refresh_token"}

	tenantAuthorities      = []string{"AP_MANAGER", "ADMIN"}
	applicationAuthorities = []string{"USER"}
)

// Default token lifetimes applied when the client record carries none.
const (
	DefaultAccessTokenTTL  = 3600 // seconds
	DefaultRefreshTokenTTL = 3600 // seconds
)

// ClientFactory builds the registry record derived from a domain entity.
type ClientFactory[T any] interface {
	CreateFrom(entity T) ClientRecord
}

// TenantClientFactory derives a client record from a tenant: client id is the
// login account, client secret the stored password hash.
type TenantClientFactory struct{}

func NewTenantClientFactory() *TenantClientFactory {
	return &TenantClientFactory{}
}

func (f *TenantClientFactory) CreateFrom(t *tenant.Tenant) ClientRecord {
	return ClientRecord{
		ClientID:        t.ClientID(),
		Secret:          t.Credential.Password,
		GrantTypes:      defaultGrantTypes,
		Authorities:     tenantAuthorities,
		Scopes:          defaultScopes,
		RedirectURIs:    []string{},
		AccessTokenTTL:  DefaultAccessTokenTTL,
		RefreshTokenTTL: DefaultRefreshTokenTTL,
	}
}

// ApplicationClientFactory derives a client record from an application:
// client id is the application id, client secret its API key. Application
// level overrides for grant types, authorities, scopes and redirect URIs are
// honored; empty ones fall back to the defaults.
type ApplicationClientFactory struct{}

func NewApplicationClientFactory() *ApplicationClientFactory {
	return &ApplicationClientFactory{}
}

func (f *ApplicationClientFactory) CreateFrom(app *application.Application) ClientRecord {
	record := ClientRecord{
		ClientID:        app.ClientID(),
		Secret:          app.APIKey,
		GrantTypes:      orDefault(app.GrantTypes, defaultGrantTypes),
		Authorities:     orDefault(app.Authorities, applicationAuthorities),
		Scopes:          orDefault(app.Scopes, defaultScopes),
		RedirectURIs:    app.RedirectURIs,
		AccessTokenTTL:  DefaultAccessTokenTTL,
		RefreshTokenTTL: DefaultRefreshTokenTTL,
	}
	if record.RedirectURIs == nil {
		record.RedirectURIs = []string{}
	}
	return record
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
