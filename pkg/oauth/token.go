package oauth

import (
	"net/http"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// Grant type identifiers as they appear on the wire.
const (
	GrantTypePassword          = "password"
	GrantTypeClientCredentials = "client_credentials"
	GrantTypeRefreshToken      = "refresh_token"
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeImplicit          = "implicit"
)

// AccessToken is the stored form of an issued access token.
type AccessToken struct {
	Token       string          `json:"token"`
	ClientID    kernel.ClientID `json:"client_id"`
	Username    string          `json:"username,omitempty"`
	SubjectID   string          `json:"subject_id,omitempty"`
	Scope       []string        `json:"scope"`
	Authorities []string        `json:"authorities"`
	IssuedAt    time.Time       `json:"issued_at"`
	ExpiresAt   time.Time       `json:"expires_at"`
}

// IsExpired reports whether the token is past its expiry.
func (t *AccessToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// RefreshToken is the stored form of an issued refresh token.
type RefreshToken struct {
	Token     string          `json:"token"`
	ClientID  kernel.ClientID `json:"client_id"`
	Username  string          `json:"username,omitempty"`
	Scope     []string        `json:"scope"`
	IssuedAt  time.Time       `json:"issued_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// IsExpired reports whether the refresh token is past its expiry.
func (t *RefreshToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// TokenResponse is the token endpoint success body. ID carries the domain
// subject id attached by the token enhancer; it is omitted when no tenant or
// end-user backed the authentication.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
	ID           string `json:"id,omitempty"`
}

// ============================================================================
// Error Registry
// ============================================================================

var TokenErrRegistry = errx.NewRegistry("TOKEN")

var (
	CodeUnsupportedGrantType = TokenErrRegistry.Register("UNSUPPORTED_GRANT_TYPE", errx.TypeValidation, http.StatusBadRequest, "Unsupported grant type")
	CodeUnauthorizedGrant    = TokenErrRegistry.Register("UNAUTHORIZED_GRANT", errx.TypeAuthorization, http.StatusUnauthorized, "Grant type not authorized for client")
	CodeInvalidGrant         = TokenErrRegistry.Register("INVALID_GRANT", errx.TypeAuthorization, http.StatusUnauthorized, "Invalid grant")
	CodeTokenNotFound        = TokenErrRegistry.Register("NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Token not found")
	CodeGenerationFailed     = TokenErrRegistry.Register("GENERATION_FAILED", errx.TypeInternal, http.StatusInternalServerError, "Token generation failed")
)

func ErrUnsupportedGrantType() *errx.Error {
	return TokenErrRegistry.New(CodeUnsupportedGrantType)
}

func ErrUnauthorizedGrant() *errx.Error {
	return TokenErrRegistry.New(CodeUnauthorizedGrant)
}

func ErrInvalidGrant() *errx.Error {
	return TokenErrRegistry.New(CodeInvalidGrant)
}

func ErrTokenNotFound() *errx.Error {
	return TokenErrRegistry.New(CodeTokenNotFound)
}

func ErrGenerationFailed() *errx.Error {
	return TokenErrRegistry.New(CodeGenerationFailed)
}
