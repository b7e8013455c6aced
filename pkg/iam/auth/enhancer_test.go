package auth_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/enduserinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
)

func TestTokenEnhancer_ClientTierSetsTenantID(t *testing.T) {
	tenantRepo := tenantinfra.NewMemoryTenantRepository()
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	userRepo := enduserinfra.NewMemoryEndUserRepository(appRepo)
	ctx := context.Background()

	tenantRepo.Save(ctx, tenant.Tenant{
		ID:         kernel.NewTenantID("t-1"),
		Credential: iam.LoginCredential{Account: "acme", Password: "hash"},
	})

	enhancer := auth.NewTokenEnhancer(tenantRepo, userRepo)
	token := enhancer.Enhance(ctx, &oauth.TokenResponse{AccessToken: "x"}, auth.ClientPrincipal("acme"))

	if token.ID != "t-1" {
		t.Fatalf("expected token id t-1, got %q", token.ID)
	}
}

func TestTokenEnhancer_UnknownClientLeavesTokenUnmodified(t *testing.T) {
	tenantRepo := tenantinfra.NewMemoryTenantRepository()
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	userRepo := enduserinfra.NewMemoryEndUserRepository(appRepo)

	enhancer := auth.NewTokenEnhancer(tenantRepo, userRepo)
	token := enhancer.Enhance(context.Background(), &oauth.TokenResponse{AccessToken: "x"}, auth.ClientPrincipal("ghost"))

	if token.ID != "" {
		t.Fatalf("expected unmodified token, got id %q", token.ID)
	}
	if token.AccessToken != "x" {
		t.Fatal("token body must survive a lookup miss")
	}
}

func TestTokenEnhancer_UserTierSetsEndUserID(t *testing.T) {
	tenantRepo := tenantinfra.NewMemoryTenantRepository()
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	userRepo := enduserinfra.NewMemoryEndUserRepository(appRepo)
	seedUser(t, appRepo, userRepo, enduser.EndUser{
		ID:         kernel.NewEndUserID("u-1"),
		Email:      "jane@example.com",
		Credential: iam.LoginCredential{Account: "jane", Password: "hash"},
	})

	enhancer := auth.NewTokenEnhancer(tenantRepo, userRepo)
	token := enhancer.Enhance(context.Background(), &oauth.TokenResponse{AccessToken: "x"},
		auth.UserPrincipal("jane@example.com", kernel.NewApplicationID(appID)))

	if token.ID != "u-1" {
		t.Fatalf("expected token id u-1, got %q", token.ID)
	}
}

func TestTokenEnhancer_UnknownUserLeavesTokenUnmodified(t *testing.T) {
	tenantRepo := tenantinfra.NewMemoryTenantRepository()
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	userRepo := enduserinfra.NewMemoryEndUserRepository(appRepo)

	enhancer := auth.NewTokenEnhancer(tenantRepo, userRepo)
	token := enhancer.Enhance(context.Background(), &oauth.TokenResponse{AccessToken: "x"},
		auth.UserPrincipal("ghost", kernel.NewApplicationID(appID)))

	if token.ID != "" {
		t.Fatalf("expected unmodified token, got id %q", token.ID)
	}
}
