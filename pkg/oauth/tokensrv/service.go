package tokensrv

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/logx"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenRequest is the parsed form of a token endpoint call. Client
// credentials arrive through HTTP Basic auth, the rest as form parameters.
type TokenRequest struct {
	GrantType     string
	ClientID      kernel.ClientID
	ClientSecret  string
	Username      string
	Password      string
	Scope         string
	RefreshToken  string
	ApplicationID kernel.ApplicationID
}

// TokenService authenticates OAuth2 clients against the registry and issues
// signed access tokens plus opaque refresh tokens. Issued tokens are recorded
// in the token store so revocation can be enforced on bearer auth.
type TokenService struct {
	registry   oauth.ClientRegistry
	store      oauth.TokenStore
	resolver   *auth.PrincipalResolver
	enhancer   *auth.TokenEnhancer
	hasher     auth.PasswordHasher
	signingKey []byte
}

func NewTokenService(
	registry oauth.ClientRegistry,
	store oauth.TokenStore,
	resolver *auth.PrincipalResolver,
	enhancer *auth.TokenEnhancer,
	hasher auth.PasswordHasher,
	signingKey []byte,
) *TokenService {
	return &TokenService{
		registry:   registry,
		store:      store,
		resolver:   resolver,
		enhancer:   enhancer,
		hasher:     hasher,
		signingKey: signingKey,
	}
}

// Issue processes a token grant. The client is authenticated first; grant
// authorization and grant-specific validation follow in that order.
func (s *TokenService) Issue(ctx context.Context, req TokenRequest) (*oauth.TokenResponse, error) {
	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return nil, err
	}

	switch req.GrantType {
	case oauth.GrantTypePassword, oauth.GrantTypeClientCredentials, oauth.GrantTypeRefreshToken:
	default:
		return nil, oauth.ErrUnsupportedGrantType().WithDetail("grant_type", req.GrantType)
	}
	if !client.AllowsGrantType(req.GrantType) {
		return nil, oauth.ErrUnauthorizedGrant().WithDetail("grant_type", req.GrantType)
	}

	switch req.GrantType {
	case oauth.GrantTypePassword:
		return s.passwordGrant(ctx, client, req)
	case oauth.GrantTypeClientCredentials:
		return s.clientCredentialsGrant(ctx, client, req)
	default:
		return s.refreshTokenGrant(ctx, client, req)
	}
}

// authenticateClient verifies the client secret against the registered
// record. Tenant clients store a password hash, application clients store the
// raw API key, so both a hash match and a constant-time equality are accepted.
// Lookup misses surface as bad credentials so callers cannot probe for
// registered client ids.
func (s *TokenService) authenticateClient(ctx context.Context, clientID kernel.ClientID, secret string) (*oauth.ClientRecord, error) {
	if clientID.IsEmpty() {
		return nil, oauth.ErrBadCredentials()
	}

	client, err := s.registry.Lookup(ctx, clientID)
	if err != nil || client == nil {
		return nil, oauth.ErrBadCredentials().WithDetail("client_id", clientID.String())
	}

	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(secret)) == 1 {
		return client, nil
	}
	if s.hasher.Matches(secret, client.Secret) {
		return client, nil
	}
	return nil, oauth.ErrBadCredentials().WithDetail("client_id", clientID.String())
}

func (s *TokenService) passwordGrant(ctx context.Context, client *oauth.ClientRecord, req TokenRequest) (*oauth.TokenResponse, error) {
	applicationID := req.ApplicationID
	if applicationID.IsEmpty() {
		// Application clients use their own id as client id.
		applicationID = kernel.NewApplicationID(req.ClientID.String())
	}

	identity, err := s.resolver.Resolve(ctx, req.Username, applicationID)
	if err != nil {
		return nil, err
	}
	if !s.hasher.Matches(req.Password, identity.HashedPassword) {
		return nil, oauth.ErrInvalidGrant().WithDetail("username", req.Username)
	}

	// Tokens carry the stored account, not the raw login: lookups on the
	// enhancer and the refresh path are against lowercased storage.
	principal := auth.UserPrincipal(identity.Account, applicationID)
	return s.issue(ctx, client, principal, identity.Account, identity.EndUserID.String(), identity.Authorities, req.Scope, true)
}

func (s *TokenService) clientCredentialsGrant(ctx context.Context, client *oauth.ClientRecord, req TokenRequest) (*oauth.TokenResponse, error) {
	principal := auth.ClientPrincipal(client.ClientID.String())
	return s.issue(ctx, client, principal, "", "", client.Authorities, req.Scope, false)
}

func (s *TokenService) refreshTokenGrant(ctx context.Context, client *oauth.ClientRecord, req TokenRequest) (*oauth.TokenResponse, error) {
	stored, err := s.store.FindRefreshToken(ctx, req.RefreshToken)
	if err != nil || stored == nil || stored.IsExpired() {
		return nil, oauth.ErrInvalidGrant()
	}
	if stored.ClientID != client.ClientID {
		return nil, oauth.ErrInvalidGrant().WithDetail("client_id", client.ClientID.String())
	}

	// Rotation: the presented refresh token is consumed.
	if err := s.store.RemoveRefreshToken(ctx, req.RefreshToken); err != nil {
		logx.WithError(err).Warn("Failed to consume refresh token")
	}

	var (
		principal   auth.Principal
		authorities []string
		username    string
		subjectID   string
	)
	if stored.Username != "" {
		applicationID := req.ApplicationID
		if applicationID.IsEmpty() {
			applicationID = kernel.NewApplicationID(client.ClientID.String())
		}
		identity, err := s.resolver.Resolve(ctx, stored.Username, applicationID)
		if err != nil {
			return nil, oauth.ErrInvalidGrant().WithDetail("username", stored.Username)
		}
		principal = auth.UserPrincipal(identity.Account, applicationID)
		authorities = identity.Authorities
		username = identity.Account
		subjectID = identity.EndUserID.String()
	} else {
		principal = auth.ClientPrincipal(client.ClientID.String())
		authorities = client.Authorities
	}

	return s.issue(ctx, client, principal, username, subjectID, authorities, strings.Join(stored.Scope, " "), true)
}

func (s *TokenService) issue(
	ctx context.Context,
	client *oauth.ClientRecord,
	principal auth.Principal,
	username string,
	subjectID string,
	authorities []string,
	requestedScope string,
	withRefresh bool,
) (*oauth.TokenResponse, error) {
	scope, err := resolveScope(client, requestedScope)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	accessTTL := ttlOrDefault(client.AccessTokenTTL, oauth.DefaultAccessTokenTTL)
	expiresAt := now.Add(time.Duration(accessTTL) * time.Second)

	subject := username
	if subject == "" {
		subject = client.ClientID.String()
	}
	claims := jwt.MapClaims{
		"sub":         subject,
		"client_id":   client.ClientID.String(),
		"scope":       scope,
		"authorities": authorities,
		"jti":         uuid.NewString(),
		"iat":         now.Unix(),
		"exp":         expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return nil, oauth.TokenErrRegistry.NewWithCause(oauth.CodeGenerationFailed, err)
	}

	access := oauth.AccessToken{
		Token:       signed,
		ClientID:    client.ClientID,
		Username:    username,
		SubjectID:   subjectID,
		Scope:       scope,
		Authorities: authorities,
		IssuedAt:    now,
		ExpiresAt:   expiresAt,
	}
	if err := s.store.SaveAccessToken(ctx, access); err != nil {
		return nil, err
	}

	response := &oauth.TokenResponse{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   accessTTL,
		Scope:       strings.Join(scope, " "),
	}

	if withRefresh && client.AllowsGrantType(oauth.GrantTypeRefreshToken) {
		refreshTTL := ttlOrDefault(client.RefreshTokenTTL, oauth.DefaultRefreshTokenTTL)
		refresh := oauth.RefreshToken{
			Token:     uuid.NewString(),
			ClientID:  client.ClientID,
			Username:  username,
			Scope:     scope,
			IssuedAt:  now,
			ExpiresAt: now.Add(time.Duration(refreshTTL) * time.Second),
		}
		if err := s.store.SaveRefreshToken(ctx, refresh); err != nil {
			return nil, err
		}
		response.RefreshToken = refresh.Token
	}

	return s.enhancer.Enhance(ctx, response, principal), nil
}

// Authenticate validates a bearer token: signature, expiry, and presence in
// the store. A token absent from the store was revoked.
func (s *TokenService) Authenticate(ctx context.Context, tokenValue string) (*oauth.AccessToken, error) {
	parsed, err := jwt.Parse(tokenValue, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, oauth.ErrInvalidGrant()
		}
		return s.signingKey, nil
	})
	if err != nil || !parsed.Valid {
		return nil, oauth.ErrInvalidGrant()
	}

	stored, err := s.store.FindAccessToken(ctx, tokenValue)
	if err != nil || stored == nil || stored.IsExpired() {
		return nil, oauth.ErrTokenNotFound()
	}
	return stored, nil
}

// Revoke drops the access token and, when the caller presents one, the
// refresh token. Revocation always reports success; revoking an unknown token
// is indistinguishable from revoking a live one.
func (s *TokenService) Revoke(ctx context.Context, accessToken, refreshToken string) {
	if accessToken != "" {
		if err := s.store.RemoveAccessToken(ctx, accessToken); err != nil {
			logx.WithError(err).Warn("Failed to remove access token")
		}
	}
	if refreshToken != "" {
		if err := s.store.RemoveRefreshToken(ctx, refreshToken); err != nil {
			logx.WithError(err).Warn("Failed to remove refresh token")
		}
	}
}

func resolveScope(client *oauth.ClientRecord, requested string) ([]string, error) {
	if strings.TrimSpace(requested) == "" {
		return client.Scopes, nil
	}

	scope := strings.Fields(requested)
	for _, s := range scope {
		if !containsScope(client.Scopes, s) {
			return nil, oauth.ErrInvalidGrant().WithDetail("scope", s)
		}
	}
	return scope, nil
}

func containsScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}

func ttlOrDefault(ttl, fallback int) int {
	if ttl > 0 {
		return ttl
	}
	return fallback
}
