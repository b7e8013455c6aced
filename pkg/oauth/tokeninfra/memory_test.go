package tokeninfra_test

import (
	"context"
	"testing"
	"time"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/tokeninfra"
)

func accessToken(value string, expiresAt time.Time) oauth.AccessToken {
	return oauth.AccessToken{
		Token:     value,
		ClientID:  kernel.NewClientID("app-1"),
		Username:  "jane@example.com",
		IssuedAt:  time.Now(),
		ExpiresAt: expiresAt,
	}
}

func TestAccessToken_SaveAndFind(t *testing.T) {
	store := tokeninfra.NewMemoryTokenStore()
	ctx := context.Background()

	saved := accessToken("tok-1", time.Now().Add(time.Hour))
	if err := store.SaveAccessToken(ctx, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	found, err := store.FindAccessToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.Username != saved.Username {
		t.Fatalf("expected username %q, got %q", saved.Username, found.Username)
	}
}

func TestAccessToken_FindMiss(t *testing.T) {
	store := tokeninfra.NewMemoryTokenStore()

	if _, err := store.FindAccessToken(context.Background(), "ghost"); err == nil {
		t.Fatal("expected not found for unknown token")
	}
}

func TestAccessToken_ExpiredIsDropped(t *testing.T) {
	store := tokeninfra.NewMemoryTokenStore()
	ctx := context.Background()

	expired := accessToken("tok-1", time.Now().Add(-time.Minute))
	if err := store.SaveAccessToken(ctx, expired); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	if _, err := store.FindAccessToken(ctx, "tok-1"); err == nil {
		t.Fatal("expected expired token to be reported not found")
	}
	// The expired entry is gone for good, not just filtered.
	if _, err := store.FindAccessToken(ctx, "tok-1"); err == nil {
		t.Fatal("expected expired token to stay gone")
	}
}

func TestAccessToken_Remove(t *testing.T) {
	store := tokeninfra.NewMemoryTokenStore()
	ctx := context.Background()

	if err := store.SaveAccessToken(ctx, accessToken("tok-1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.RemoveAccessToken(ctx, "tok-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := store.FindAccessToken(ctx, "tok-1"); err == nil {
		t.Fatal("expected removed token to be gone")
	}

	// Removing an absent token is a no-op.
	if err := store.RemoveAccessToken(ctx, "tok-1"); err != nil {
		t.Fatalf("repeated remove failed: %v", err)
	}
}

func TestRefreshToken_Lifecycle(t *testing.T) {
	store := tokeninfra.NewMemoryTokenStore()
	ctx := context.Background()

	saved := oauth.RefreshToken{
		Token:     "ref-1",
		ClientID:  kernel.NewClientID("app-1"),
		Username:  "jane@example.com",
		IssuedAt:  time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	if err := store.SaveRefreshToken(ctx, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	found, err := store.FindRefreshToken(ctx, "ref-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found.ClientID != saved.ClientID {
		t.Fatalf("expected client id %q, got %q", saved.ClientID, found.ClientID)
	}

	if err := store.RemoveRefreshToken(ctx, "ref-1"); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := store.FindRefreshToken(ctx, "ref-1"); err == nil {
		t.Fatal("expected removed refresh token to be gone")
	}
}

func TestRefreshToken_ExpiredIsDropped(t *testing.T) {
	store := tokeninfra.NewMemoryTokenStore()
	ctx := context.Background()

	expired := oauth.RefreshToken{
		Token:     "ref-1",
		ClientID:  kernel.NewClientID("app-1"),
		IssuedAt:  time.Now().Add(-2 * time.Hour),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.SaveRefreshToken(ctx, expired); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if _, err := store.FindRefreshToken(ctx, "ref-1"); err == nil {
		t.Fatal("expected expired refresh token to be reported not found")
	}
}
