package oauth

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// ClientRegistry stores OAuth2 client records keyed by client id.
//
// Register overwrites an existing record for the same client id. Remove is a
// no-op when the record is absent; callers rely on that during best-effort
// cleanup.
type ClientRegistry interface {
	Register(ctx context.Context, record ClientRecord) error
	Lookup(ctx context.Context, clientID kernel.ClientID) (*ClientRecord, error)
	Remove(ctx context.Context, clientID kernel.ClientID) error
}

// TokenStore persists issued tokens so they can be revoked. Entries expire on
// their own once the token TTL elapses.
type TokenStore interface {
	SaveAccessToken(ctx context.Context, token AccessToken) error
	FindAccessToken(ctx context.Context, tokenValue string) (*AccessToken, error)
	RemoveAccessToken(ctx context.Context, tokenValue string) error

	SaveRefreshToken(ctx context.Context, token RefreshToken) error
	FindRefreshToken(ctx context.Context, tokenValue string) (*RefreshToken, error)
	RemoveRefreshToken(ctx context.Context, tokenValue string) error
}
