package tenantsrv_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantsrv"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/clientinfra"
)

func newService() (*tenantsrv.TenantService, *tenantinfra.MemoryTenantRepository, *clientinfra.MemoryClientRegistry) {
	repo := tenantinfra.NewMemoryTenantRepository()
	registry := clientinfra.NewMemoryClientRegistry()
	service := tenantsrv.NewTenantService(repo, registry, auth.NewBcryptHasher(), nil)
	return service, repo, registry
}

func assertCode(t *testing.T, err error, code *errx.ErrorCode) {
	t.Helper()
	var e *errx.Error
	if !errx.As(err, &e) {
		t.Fatalf("expected *errx.Error, got %T: %v", err, err)
	}
	if e.Code != code.Code {
		t.Fatalf("expected code %s, got %s", code.Code, e.Code)
	}
}

func newTenant(account, email string) tenant.Tenant {
	return tenant.Tenant{
		Email:       email,
		Credential:  iam.LoginCredential{Account: account, Password: "hunter2"},
		CompanyName: "ACME Corp",
	}
}

func TestRegister(t *testing.T) {
	service, _, registry := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if created.ID.IsEmpty() {
		t.Fatal("expected an assigned id")
	}
	if created.Status != tenant.StatusCreated {
		t.Fatalf("expected CREATED status, got %s", created.Status)
	}
	if created.Credential.Password == "hunter2" {
		t.Fatal("password must be hashed before persistence")
	}
	if !auth.NewBcryptHasher().Matches("hunter2", created.Credential.Password) {
		t.Fatal("stored hash must verify against the raw password")
	}
	if len(created.APIKey.Secret) != iam.DefaultSecretLength {
		t.Fatalf("expected api key of length %d, got %d", iam.DefaultSecretLength, len(created.APIKey.Secret))
	}

	record, err := registry.Lookup(ctx, created.ClientID())
	if err != nil {
		t.Fatalf("expected a registered client: %v", err)
	}
	if record.Secret != created.Credential.Password {
		t.Fatal("tenant client secret must be the stored password hash")
	}
	if !record.HasAuthority("AP_MANAGER") {
		t.Fatalf("expected tenant authorities, got %v", record.Authorities)
	}
}

func TestRegister_MissingCredential(t *testing.T) {
	service, _, _ := newService()

	_, err := service.Register(context.Background(), tenant.Tenant{Email: "x@y.z"}, "tester")
	assertCode(t, err, tenant.CodeMissingCredential)
}

func TestRegister_DuplicateAccount(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	if _, err := service.Register(ctx, newTenant("acme", "one@acme.io"), "tester"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := service.Register(ctx, newTenant("acme", "two@acme.io"), "tester")
	assertCode(t, err, tenant.CodeDuplicateAccount)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	if _, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := service.Register(ctx, newTenant("other", "admin@acme.io"), "tester")
	assertCode(t, err, tenant.CodeDuplicateEmail)
}

func TestStatusTransitions(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	activated, err := service.Activate(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if activated.Status != tenant.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", activated.Status)
	}

	// Same-status change is a no-op, not an error.
	again, err := service.Activate(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("repeated activate failed: %v", err)
	}
	if again.Status != tenant.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", again.Status)
	}

	if _, err := service.Lock(ctx, created.ID, "tester"); err != nil {
		t.Fatalf("lock failed: %v", err)
	}
}

func TestTerminate_ExpiresAPIKeyAndIsIdempotent(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	terminated, err := service.Terminate(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("terminate failed: %v", err)
	}
	if terminated.Status != tenant.StatusTerminated {
		t.Fatalf("expected TERMINATED, got %s", terminated.Status)
	}
	if !terminated.APIKey.IsExpired() {
		t.Fatal("terminate must expire the api key")
	}
	firstExpiry := terminated.APIKey.ExpiresAt

	again, err := service.Terminate(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("repeated terminate failed: %v", err)
	}
	if !again.APIKey.ExpiresAt.Equal(firstExpiry) {
		t.Fatal("repeated terminate must not move the expiry timestamp")
	}
}

func TestStatusChange_TerminatedIsTerminal(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := service.Terminate(ctx, created.ID, "tester"); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}

	_, err = service.Activate(ctx, created.ID, "tester")
	assertCode(t, err, tenant.CodeInvalidTransition)
}

func TestUpdate_NoChangeDoesNotTouchAudit(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	before := created.Audit.ModifiedAt

	same, err := service.Update(ctx, created.ID, tenant.Tenant{Email: "admin@acme.io"}, "editor")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !same.Audit.ModifiedAt.Equal(before) {
		t.Fatal("no-op update must not touch the audit trail")
	}
}

func TestUpdate_ChangesEmailAndProfile(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	updated, err := service.Update(ctx, created.ID, tenant.Tenant{
		Email:   "new@acme.io",
		Profile: iam.UserProfile{FirstName: "Jane", Country: "PE"},
	}, "editor")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Email != "new@acme.io" {
		t.Fatalf("expected new email, got %s", updated.Email)
	}
	if updated.Profile.FirstName != "Jane" {
		t.Fatalf("expected profile to be replaced, got %+v", updated.Profile)
	}
	if updated.Audit.ModifiedBy != "editor" {
		t.Fatalf("expected editor in audit trail, got %s", updated.Audit.ModifiedBy)
	}
}

func TestUpdatePassword(t *testing.T) {
	service, _, _ := newService()
	ctx := context.Background()
	hasher := auth.NewBcryptHasher()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	originalHash := created.Credential.Password

	// Wrong current password leaves the hash untouched.
	unchanged, err := service.UpdatePassword(ctx, created.ID, "wrong", "newpass", "tester")
	if err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if unchanged.Credential.Password != originalHash {
		t.Fatal("wrong current password must not change the stored hash")
	}

	changed, err := service.UpdatePassword(ctx, created.ID, "hunter2", "newpass", "tester")
	if err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if !hasher.Matches("newpass", changed.Credential.Password) {
		t.Fatal("new hash must verify against the new password")
	}
}

func TestDelete_RemovesRegistryEntry(t *testing.T) {
	service, _, registry := newService()
	ctx := context.Background()

	created, err := service.Register(ctx, newTenant("acme", "admin@acme.io"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := service.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := service.FindExisting(ctx, created.ID); err == nil {
		t.Fatal("expected tenant to be gone")
	}
	if _, err := registry.Lookup(ctx, created.ClientID()); err == nil {
		t.Fatal("expected client registration to be gone")
	}

	// Repeated delete fails, the tenant no longer exists.
	if err := service.Delete(ctx, created.ID); err == nil {
		t.Fatal("expected delete of a missing tenant to fail")
	}
}
