package auth

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
)

// Principal describes who authenticated at the token endpoint. Two shapes
// occur: a client-tier principal, where the client account string itself is
// the principal (a tenant authenticating as an OAuth2 client), and a
// user-tier principal produced by the resolver, where the username belongs to
// an end-user of the authenticating application.
type Principal struct {
	ClientAccount string
	Username      string
	ApplicationID kernel.ApplicationID
}

// ClientPrincipal builds a client-tier principal.
func ClientPrincipal(account string) Principal {
	return Principal{ClientAccount: account}
}

// UserPrincipal builds a user-tier principal scoped to the authenticating
// application.
func UserPrincipal(username string, applicationID kernel.ApplicationID) Principal {
	return Principal{Username: username, ApplicationID: applicationID}
}

// IsClientTier reports whether the principal is the raw client account.
func (p Principal) IsClientTier() bool {
	return p.ClientAccount != ""
}

// TokenEnhancer attaches the domain subject id to an issued token. When no
// tenant or end-user backs the principal the token is returned unmodified;
// client-credentials-only tokens depend on that graceful degradation.
type TokenEnhancer struct {
	tenantRepo  tenant.TenantRepository
	endUserRepo enduser.EndUserRepository
}

func NewTokenEnhancer(tenantRepo tenant.TenantRepository, endUserRepo enduser.EndUserRepository) *TokenEnhancer {
	return &TokenEnhancer{
		tenantRepo:  tenantRepo,
		endUserRepo: endUserRepo,
	}
}

// Enhance resolves the subject id for the principal and sets it on the token.
func (e *TokenEnhancer) Enhance(ctx context.Context, token *oauth.TokenResponse, principal Principal) *oauth.TokenResponse {
	if principal.IsClientTier() {
		t, err := e.tenantRepo.FindByAccount(ctx, principal.ClientAccount)
		if err != nil || t == nil {
			return token
		}
		token.ID = t.ID.String()
		return token
	}

	if principal.Username == "" || principal.ApplicationID.IsEmpty() {
		return token
	}

	var (
		user *enduser.EndUser
		err  error
	)
	if IsEmailLogin(principal.Username) {
		user, err = e.endUserRepo.FindByApplicationAndEmail(ctx, principal.ApplicationID, principal.Username)
	} else {
		user, err = e.endUserRepo.FindByApplicationAndAccount(ctx, principal.ApplicationID, principal.Username)
	}
	if err != nil || user == nil {
		return token
	}

	token.ID = user.ID.String()
	return token
}
