package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/logx"
)

// ============================================================================
// Error Registry
// ============================================================================

var ErrRegistry = errx.NewRegistry("AUTH")

var (
	CodeUnknownPrincipal = ErrRegistry.Register("UNKNOWN_PRINCIPAL", errx.TypeAuthorization, http.StatusUnauthorized, "User was not found")
	CodeMissingClient    = ErrRegistry.Register("MISSING_CLIENT", errx.TypeValidation, http.StatusBadRequest, "client_id (application id) is required")
)

func ErrUnknownPrincipal() *errx.Error {
	return ErrRegistry.New(CodeUnknownPrincipal)
}

func ErrMissingClient() *errx.Error {
	return ErrRegistry.New(CodeMissingClient)
}

// AuthIdentity is the authentication view of an end-user: the stored account,
// the password hash to verify against, and the fixed USER authority.
type AuthIdentity struct {
	EndUserID      kernel.EndUserID
	Account        string
	HashedPassword string
	Authorities    []string
}

// IsEmailLogin classifies a login identifier: anything containing '@' is
// treated as an email, everything else as an account name.
func IsEmailLogin(login string) bool {
	return strings.Contains(login, "@")
}

// PrincipalResolver maps a raw login string plus the authenticating
// application onto a concrete end-user identity. Resolution is always scoped
// to the application the end-user is logging into, never global.
type PrincipalResolver struct {
	endUserRepo enduser.EndUserRepository
}

func NewPrincipalResolver(endUserRepo enduser.EndUserRepository) *PrincipalResolver {
	return &PrincipalResolver{endUserRepo: endUserRepo}
}

// Resolve looks up the end-user by email or account within the application
// scope. The login is lowercased before lookup.
func (r *PrincipalResolver) Resolve(ctx context.Context, login string, applicationID kernel.ApplicationID) (*AuthIdentity, error) {
	if applicationID.IsEmpty() {
		return nil, ErrMissingClient()
	}

	logx.WithField("application_id", applicationID.String()).Debugf("Authenticating %s", login)
	lowercaseLogin := strings.ToLower(login)

	var (
		user *enduser.EndUser
		err  error
	)
	if IsEmailLogin(login) {
		user, err = r.endUserRepo.FindByApplicationAndEmail(ctx, applicationID, lowercaseLogin)
	} else {
		user, err = r.endUserRepo.FindByApplicationAndAccount(ctx, applicationID, lowercaseLogin)
	}
	if err != nil || user == nil {
		return nil, ErrUnknownPrincipal().WithDetail("login", login)
	}

	return &AuthIdentity{
		EndUserID:      user.ID,
		Account:        user.Credential.Account,
		HashedPassword: user.Credential.Password,
		Authorities:    []string{"USER"},
	}, nil
}
