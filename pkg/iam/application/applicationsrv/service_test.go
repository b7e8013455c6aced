package applicationsrv_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationsrv"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant/tenantinfra"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/Abraxas-365/tenantgate/pkg/oauth/clientinfra"
	"github.com/Abraxas-365/tenantgate/pkg/ptrx"
)

type fixture struct {
	service  *applicationsrv.ApplicationService
	registry *clientinfra.MemoryClientRegistry
}

func newFixture(t *testing.T, accounts ...string) fixture {
	t.Helper()
	tenantRepo := tenantinfra.NewMemoryTenantRepository()
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	registry := clientinfra.NewMemoryClientRegistry()

	for i, account := range accounts {
		err := tenantRepo.Save(context.Background(), tenant.Tenant{
			ID:         kernel.NewTenantID(fmt.Sprintf("t-%d", i+1)),
			Credential: iam.LoginCredential{Account: account, Password: "hash"},
		})
		if err != nil {
			t.Fatalf("seeding tenant: %v", err)
		}
	}

	return fixture{
		service:  applicationsrv.NewApplicationService(appRepo, tenantRepo, registry),
		registry: registry,
	}
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

func TestCreate(t *testing.T) {
	fx := newFixture(t, "acme")
	ctx := context.Background()

	created, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if created.ID.IsEmpty() {
		t.Fatal("expected an assigned id")
	}
	if created.Status != application.StatusCreated {
		t.Fatalf("expected CREATED, got %s", created.Status)
	}
	if len(created.APIKey) != iam.DefaultSecretLength {
		t.Fatalf("expected api key of length %d, got %d", iam.DefaultSecretLength, len(created.APIKey))
	}
	if created.OwnerID.String() != "t-1" {
		t.Fatalf("expected owner t-1, got %s", created.OwnerID)
	}

	record, err := fx.registry.Lookup(ctx, created.ClientID())
	if err != nil {
		t.Fatalf("expected a registered client: %v", err)
	}
	if record.Secret != created.APIKey {
		t.Fatal("application client secret must be the api key")
	}
	if !record.HasAuthority("USER") {
		t.Fatalf("expected USER authority, got %v", record.Authorities)
	}
}

func TestCreate_MissingName(t *testing.T) {
	fx := newFixture(t, "acme")

	_, err := fx.service.Create(context.Background(), "acme", application.Application{}, "tester")
	assertCode(t, err, application.CodeMissingName)
}

func TestCreate_UnknownTenant(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.Create(context.Background(), "ghost", application.Application{Name: "mobile"}, "tester")
	assertCode(t, err, tenant.CodeNotFound)
}

func TestCreate_DuplicateNamePerOwner(t *testing.T) {
	fx := newFixture(t, "acme", "other")
	ctx := context.Background()

	if _, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	assertCode(t, err, application.CodeDuplicateName)

	// The same name under a different owner is fine.
	if _, err := fx.service.Create(ctx, "other", application.Application{Name: "mobile"}, "tester"); err != nil {
		t.Fatalf("create under other owner failed: %v", err)
	}
}

// failingAppRepo simulates storage loss on the duplicate-name lookup.
type failingAppRepo struct {
	*applicationinfra.MemoryApplicationRepository
}

func (failingAppRepo) FindByNameAndOwner(ctx context.Context, name string, ownerID kernel.TenantID) (*application.Application, error) {
	return nil, errx.New("application storage unavailable", errx.TypeInternal)
}

func TestCreate_RepoFailureIsNotTreatedAsFree(t *testing.T) {
	tenantRepo := tenantinfra.NewMemoryTenantRepository()
	appRepo := failingAppRepo{applicationinfra.NewMemoryApplicationRepository()}
	ctx := context.Background()

	err := tenantRepo.Save(ctx, tenant.Tenant{
		ID:         kernel.NewTenantID("t-1"),
		Credential: iam.LoginCredential{Account: "acme", Password: "hash"},
	})
	if err != nil {
		t.Fatalf("seeding tenant: %v", err)
	}

	service := applicationsrv.NewApplicationService(appRepo, tenantRepo, clientinfra.NewMemoryClientRegistry())
	_, err = service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	if err == nil {
		t.Fatal("expected the repository failure to surface")
	}

	var e *errx.Error
	if !errx.As(err, &e) {
		t.Fatalf("expected *errx.Error, got %T: %v", err, err)
	}
	if e.Type != errx.TypeInternal {
		t.Fatalf("expected the internal error to propagate unchanged, got %s", e.Type)
	}
}

func TestUpdate_OwnerEnforced(t *testing.T) {
	fx := newFixture(t, "acme", "other")
	ctx := context.Background()

	created, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = fx.service.Update(ctx, "other", created.ID, applicationsrv.UpdateRequest{Name: ptrx.String("renamed")}, "tester")
	assertCode(t, err, application.CodeInvalidOwner)
}

func TestUpdate_AppliesPatch(t *testing.T) {
	fx := newFixture(t, "acme")
	ctx := context.Background()

	created, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := fx.service.Update(ctx, "acme", created.ID, applicationsrv.UpdateRequest{
		DisabledNewUser: ptrx.Bool(true),
		GrantTypes:      []string{oauth.GrantTypePassword},
	}, "tester")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.DisabledNewUser {
		t.Fatal("expected DisabledNewUser to be set")
	}
	if len(updated.GrantTypes) != 1 || updated.GrantTypes[0] != oauth.GrantTypePassword {
		t.Fatalf("expected grant type override, got %v", updated.GrantTypes)
	}
	if updated.Name != "mobile" {
		t.Fatalf("nil name pointer must leave the name untouched, got %q", updated.Name)
	}
}

func TestList_PaginatesByOwner(t *testing.T) {
	fx := newFixture(t, "acme", "other")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := fx.service.Create(ctx, "acme", application.Application{Name: fmt.Sprintf("app-%d", i)}, "tester"); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if _, err := fx.service.Create(ctx, "other", application.Application{Name: "foreign"}, "tester"); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	page, err := fx.service.FindAllOf(ctx, "acme", kernel.PaginationOptions{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected 2 items on the first page, got %d", len(page.Items))
	}
	if page.Page.Total != 3 {
		t.Fatalf("expected total 3, got %d", page.Page.Total)
	}
	if !page.HasNext() {
		t.Fatal("expected a next page")
	}
}

func TestStatusChange_TerminatedIsSticky(t *testing.T) {
	fx := newFixture(t, "acme")
	ctx := context.Background()

	created, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := fx.service.Terminate(ctx, created.ID, "tester"); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}

	after, err := fx.service.Activate(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("activate after terminate failed: %v", err)
	}
	if after.Status != application.StatusTerminated {
		t.Fatalf("terminated application must stay terminated, got %s", after.Status)
	}
}

func TestDelete(t *testing.T) {
	fx := newFixture(t, "acme", "other")
	ctx := context.Background()

	created, err := fx.service.Create(ctx, "acme", application.Application{Name: "mobile"}, "tester")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := fx.service.Delete(ctx, "other", created.ID); err == nil {
		t.Fatal("expected delete by a non-owner to fail")
	}

	if err := fx.service.Delete(ctx, "acme", created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if err := fx.service.CheckExists(ctx, created.ID); err == nil {
		t.Fatal("expected application to be gone")
	}
	if _, err := fx.registry.Lookup(ctx, created.ClientID()); err == nil {
		t.Fatal("expected client registration to be gone")
	}
}
