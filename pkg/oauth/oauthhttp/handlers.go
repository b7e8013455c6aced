package oauthhttp

import (
	"encoding/base64"
	"strings"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/tokensrv"
	"github.com/gofiber/fiber/v2"
)

// OAuthHandlers expone el endpoint de emisión de tokens OAuth2.
type OAuthHandlers struct {
	tokens *tokensrv.TokenService
}

func NewOAuthHandlers(tokens *tokensrv.TokenService) *OAuthHandlers {
	return &OAuthHandlers{tokens: tokens}
}

func (h *OAuthHandlers) RegisterRoutes(app fiber.Router) {
	app.Post("/oauth/token", h.token)
	app.Post("/oauth/token/revoke", h.revoke)
	app.Post("/logout", h.revoke)
}

// token handles every grant. Client credentials arrive via HTTP Basic auth,
// with form parameters as a fallback for clients that cannot set the header.
func (h *OAuthHandlers) token(c *fiber.Ctx) error {
	clientID, clientSecret := basicAuth(c)
	if clientID == "" {
		clientID = c.FormValue("client_id")
		clientSecret = c.FormValue("client_secret")
	}

	req := tokensrv.TokenRequest{
		GrantType:     c.FormValue("grant_type"),
		ClientID:      kernel.NewClientID(clientID),
		ClientSecret:  clientSecret,
		Username:      c.FormValue("username"),
		Password:      c.FormValue("password"),
		Scope:         c.FormValue("scope"),
		RefreshToken:  c.FormValue("refresh_token"),
		ApplicationID: kernel.NewApplicationID(c.FormValue("applicationId")),
	}

	response, err := h.tokens.Issue(c.Context(), req)
	if err != nil {
		return err
	}
	return c.JSON(response)
}

// revoke removes the bearer token from the store. Revocation always reports
// success, revoking an unknown token included.
func (h *OAuthHandlers) revoke(c *fiber.Ctx) error {
	h.tokens.Revoke(c.Context(), BearerToken(c), c.FormValue("refresh_token"))
	return c.JSON(fiber.Map{"status": "ok"})
}

// basicAuth decodes the Authorization: Basic header into client credentials.
func basicAuth(c *fiber.Ctx) (string, string) {
	header := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(header, "Basic ") {
		return "", ""
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, "Basic "))
	if err != nil {
		return "", ""
	}
	clientID, secret, found := strings.Cut(string(decoded), ":")
	if !found {
		return "", ""
	}
	return clientID, secret
}

// BearerToken extracts the raw bearer token, empty when absent.
func BearerToken(c *fiber.Ctx) string {
	header := c.Get(fiber.HeaderAuthorization)
	parts := strings.SplitN(header, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return parts[1]
	}
	return ""
}

// TokenLocalKey is the fiber locals key the middleware stores the
// authenticated token under.
const TokenLocalKey = "oauth_token"

// BearerMiddleware protege rutas validando el token de acceso.
type BearerMiddleware struct {
	tokens *tokensrv.TokenService
}

func NewBearerMiddleware(tokens *tokensrv.TokenService) *BearerMiddleware {
	return &BearerMiddleware{tokens: tokens}
}

// Authenticate validates the bearer token against the signing key and the
// revocation store, then stashes it in the request locals.
func (m *BearerMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := BearerToken(c)
		if raw == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		token, err := m.tokens.Authenticate(c.Context(), raw)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or revoked token",
			})
		}

		c.Locals(TokenLocalKey, token)
		return c.Next()
	}
}

// Actor returns the audit actor for the request: the authenticated username,
// the client id for client-tier tokens, or "system" on unprotected routes.
func Actor(c *fiber.Ctx) string {
	token, ok := c.Locals(TokenLocalKey).(*oauth.AccessToken)
	if !ok || token == nil {
		return "system"
	}
	if token.Username != "" {
		return token.Username
	}
	return token.ClientID.String()
}
