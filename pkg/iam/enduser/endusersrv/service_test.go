package endusersrv_test

import (
	"context"
	"testing"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application/applicationinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/enduserinfra"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser/endusersrv"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

const (
	ownerID = "t-1"
	appID   = "app-1"
)

type fixture struct {
	service *endusersrv.EndUserService
	appRepo *applicationinfra.MemoryApplicationRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	userRepo := enduserinfra.NewMemoryEndUserRepository(appRepo)

	err := appRepo.Save(context.Background(), application.Application{
		ID:      kernel.NewApplicationID(appID),
		Name:    "mobile",
		Status:  application.StatusActive,
		OwnerID: kernel.NewTenantID(ownerID),
	})
	if err != nil {
		t.Fatalf("seeding application: %v", err)
	}

	return fixture{
		service: endusersrv.NewEndUserService(userRepo, appRepo, auth.NewBcryptHasher()),
		appRepo: appRepo,
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

func newUser(account, email string) enduser.EndUser {
	return enduser.EndUser{
		Email:      email,
		Credential: iam.LoginCredential{Account: account, Password: "hunter2"},
	}
}

func TestRegister(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("Jane", "Jane@Example.COM"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if created.Credential.Account != "jane" {
		t.Fatalf("account must be lowercased, got %q", created.Credential.Account)
	}
	if created.Email != "jane@example.com" {
		t.Fatalf("email must be lowercased, got %q", created.Email)
	}
	if created.Status != enduser.StatusCreated {
		t.Fatalf("expected CREATED, got %s", created.Status)
	}
	if created.TenantID.String() != ownerID {
		t.Fatalf("expected denormalized tenant id %s, got %s", ownerID, created.TenantID)
	}
	if created.Credential.Password == "hunter2" {
		t.Fatal("password must be hashed")
	}

	isMember, err := fx.appRepo.HasMember(ctx, kernel.NewApplicationID(appID), created.ID)
	if err != nil || !isMember {
		t.Fatalf("expected membership to be wired, got member=%v err=%v", isMember, err)
	}
}

func TestRegister_UnknownApplication(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.Register(context.Background(), kernel.NewApplicationID("ghost"), newUser("jane", ""), "tester")
	assertCode(t, err, application.CodeNotFound)
}

func TestRegister_DisabledNewUser(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.appRepo.Save(ctx, application.Application{
		ID:              kernel.NewApplicationID("closed"),
		Name:            "closed",
		OwnerID:         kernel.NewTenantID(ownerID),
		DisabledNewUser: true,
	})
	if err != nil {
		t.Fatalf("seeding application: %v", err)
	}

	_, err = fx.service.Register(ctx, kernel.NewApplicationID("closed"), newUser("jane", ""), "tester")
	assertCode(t, err, application.CodeRegistrationDisabled)
}

func TestRegister_MissingCredential(t *testing.T) {
	fx := newFixture(t)

	_, err := fx.service.Register(context.Background(), kernel.NewApplicationID(appID), enduser.EndUser{Email: "a@b.c"}, "tester")
	assertCode(t, err, enduser.CodeMissingCredential)
}

func TestRegister_DuplicateAccountWithinApplication(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", "one@example.com"), "tester"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("JANE", "two@example.com"), "tester")
	assertCode(t, err, enduser.CodeDuplicateAccount)
}

func TestRegister_DuplicateEmailWithinTenant(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	// Second application under the same owner: the email check is
	// tenant-scoped, not application-scoped.
	err := fx.appRepo.Save(ctx, application.Application{
		ID:      kernel.NewApplicationID("app-2"),
		Name:    "web",
		OwnerID: kernel.NewTenantID(ownerID),
	})
	if err != nil {
		t.Fatalf("seeding application: %v", err)
	}

	if _, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", "jane@example.com"), "tester"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	_, err = fx.service.Register(ctx, kernel.NewApplicationID("app-2"), newUser("other", "jane@example.com"), "tester")
	assertCode(t, err, enduser.CodeDuplicateEmail)
}

func TestRegister_DuplicateMobileWithinTenant(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	first := newUser("jane", "jane@example.com")
	first.Profile = iam.UserProfile{MobilePhoneNo: "+51999888777"}
	if _, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), first, "tester"); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	second := newUser("bob", "bob@example.com")
	second.Profile = iam.UserProfile{MobilePhoneNo: "+51999888777"}
	_, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), second, "tester")
	assertCode(t, err, enduser.CodeDuplicateMobile)
}

// failingEndUserRepo simulates storage loss on the tenant email lookup.
type failingEndUserRepo struct {
	*enduserinfra.MemoryEndUserRepository
}

func (failingEndUserRepo) FindByTenantAndEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*enduser.EndUser, error) {
	return nil, errx.New("end-user storage unavailable", errx.TypeInternal)
}

func TestRegister_RepoFailureIsNotTreatedAsFree(t *testing.T) {
	appRepo := applicationinfra.NewMemoryApplicationRepository()
	userRepo := failingEndUserRepo{enduserinfra.NewMemoryEndUserRepository(appRepo)}
	ctx := context.Background()

	err := appRepo.Save(ctx, application.Application{
		ID:      kernel.NewApplicationID(appID),
		Name:    "mobile",
		OwnerID: kernel.NewTenantID(ownerID),
	})
	if err != nil {
		t.Fatalf("seeding application: %v", err)
	}

	service := endusersrv.NewEndUserService(userRepo, appRepo, auth.NewBcryptHasher())
	_, err = service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", "jane@example.com"), "tester")
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

func TestUpdate_OwnContactDataDoesNotSelfConflict(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	u := newUser("jane", "jane@example.com")
	u.Profile = iam.UserProfile{MobilePhoneNo: "+51999888777"}
	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), u, "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	// Same mobile, new first name: the uniqueness check must exclude the
	// user itself.
	updated, err := fx.service.Update(ctx, kernel.NewApplicationID(appID), created.ID, enduser.EndUser{
		Profile: iam.UserProfile{MobilePhoneNo: "+51999888777", FirstName: "Jane"},
	}, "tester")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Profile.FirstName != "Jane" {
		t.Fatalf("expected profile change, got %+v", updated.Profile)
	}
}

func TestUpdate_ConflictingEmailRejected(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", "jane@example.com"), "tester"); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	bob, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("bob", "bob@example.com"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	_, err = fx.service.Update(ctx, kernel.NewApplicationID(appID), bob.ID, enduser.EndUser{Email: "jane@example.com"}, "tester")
	assertCode(t, err, enduser.CodeDuplicateEmail)
}

func TestUpdate_NoChangeDoesNotTouchAudit(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", "jane@example.com"), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	before := created.Audit.ModifiedAt

	same, err := fx.service.Update(ctx, kernel.NewApplicationID(appID), created.ID, enduser.EndUser{Email: "jane@example.com"}, "editor")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !same.Audit.ModifiedAt.Equal(before) {
		t.Fatal("no-op update must not touch the audit trail")
	}
}

func TestUpdatePassword_WrongCurrentIsNoop(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", ""), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	original := created.Credential.Password

	unchanged, err := fx.service.UpdatePassword(ctx, created.ID, "wrong", "newpass", "tester")
	if err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if unchanged.Credential.Password != original {
		t.Fatal("wrong current password must not change the stored hash")
	}

	changed, err := fx.service.UpdatePassword(ctx, created.ID, "hunter2", "newpass", "tester")
	if err != nil {
		t.Fatalf("update password failed: %v", err)
	}
	if !auth.NewBcryptHasher().Matches("newpass", changed.Credential.Password) {
		t.Fatal("new hash must verify against the new password")
	}
}

func TestStatusChanges(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", ""), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	activated, err := fx.service.Activate(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("activate failed: %v", err)
	}
	if activated.Status != enduser.StatusActive {
		t.Fatalf("expected ACTIVE, got %s", activated.Status)
	}

	// Same-status change is a silent no-op.
	if _, err := fx.service.Activate(ctx, created.ID, "tester"); err != nil {
		t.Fatalf("repeated activate failed: %v", err)
	}

	if _, err := fx.service.Terminate(ctx, created.ID, "tester"); err != nil {
		t.Fatalf("terminate failed: %v", err)
	}

	_, err = fx.service.Activate(ctx, created.ID, "tester")
	assertCode(t, err, enduser.CodeInvalidTransition)
}

func TestUnregister_Terminates(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", ""), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	gone, err := fx.service.Unregister(ctx, created.ID, "tester")
	if err != nil {
		t.Fatalf("unregister failed: %v", err)
	}
	if gone.Status != enduser.StatusTerminated {
		t.Fatalf("expected TERMINATED, got %s", gone.Status)
	}
}

func TestDelete_RemovesMembership(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", ""), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	if err := fx.service.Delete(ctx, kernel.NewApplicationID(appID), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := fx.service.FindExisting(ctx, created.ID); err == nil {
		t.Fatal("expected end-user to be gone")
	}
	isMember, _ := fx.appRepo.HasMember(ctx, kernel.NewApplicationID(appID), created.ID)
	if isMember {
		t.Fatal("expected membership to be gone")
	}
}

func TestDelete_RemovesMembershipsAcrossApplications(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	err := fx.appRepo.Save(ctx, application.Application{
		ID:      kernel.NewApplicationID("app-2"),
		Name:    "web",
		OwnerID: kernel.NewTenantID(ownerID),
	})
	if err != nil {
		t.Fatalf("seeding application: %v", err)
	}

	created, err := fx.service.Register(ctx, kernel.NewApplicationID(appID), newUser("jane", ""), "tester")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	err = fx.appRepo.AddMember(ctx, application.Membership{
		ApplicationID: kernel.NewApplicationID("app-2"),
		EndUserID:     created.ID,
	})
	if err != nil {
		t.Fatalf("adding second membership: %v", err)
	}

	// Delete through the first application must not leave the second
	// membership behind.
	if err := fx.service.Delete(ctx, kernel.NewApplicationID(appID), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	for _, app := range []string{appID, "app-2"} {
		isMember, _ := fx.appRepo.HasMember(ctx, kernel.NewApplicationID(app), created.ID)
		if isMember {
			t.Fatalf("expected membership under %s to be gone", app)
		}
	}
}
