package endusersrv

import (
	"context"
	"strings"

	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/logx"
	"github.com/google/uuid"
)

// EndUserService owns end-user registration and the status state machine.
// Registration wires the application membership and denormalizes the owning
// tenant id onto the user for tenant-scoped uniqueness queries.
type EndUserService struct {
	endUserRepo enduser.EndUserRepository
	appRepo     application.ApplicationRepository
	validator   *RegistrationValidator
	hasher      auth.PasswordHasher
}

func NewEndUserService(
	endUserRepo enduser.EndUserRepository,
	appRepo application.ApplicationRepository,
	hasher auth.PasswordHasher,
) *EndUserService {
	return &EndUserService{
		endUserRepo: endUserRepo,
		appRepo:     appRepo,
		validator:   NewRegistrationValidator(endUserRepo, appRepo),
		hasher:      hasher,
	}
}

// Register validates and persists a new end-user under the application, then
// adds the membership. Account and email are lowercased so that login
// classification at authentication time matches what was stored.
func (s *EndUserService) Register(ctx context.Context, applicationID kernel.ApplicationID, u enduser.EndUser, actor string) (*enduser.EndUser, error) {
	u.Credential.Account = strings.ToLower(u.Credential.Account)
	u.Email = strings.ToLower(u.Email)

	if err := s.validator.Validate(ctx, applicationID, &u); err != nil {
		return nil, err
	}

	app, err := s.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return nil, application.ErrApplicationNotFound().WithDetail("id", applicationID.String())
	}

	hashed, err := s.hasher.Hash(u.Credential.Password)
	if err != nil {
		return nil, err
	}
	u.Credential.Password = hashed

	u.ID = kernel.NewEndUserID(uuid.NewString())
	u.Status = enduser.StatusCreated
	u.TenantID = app.OwnerID
	u.Audit = kernel.NewAuditInfo(actor)

	if err := s.endUserRepo.Save(ctx, u); err != nil {
		return nil, err
	}

	membership := application.Membership{ApplicationID: applicationID, EndUserID: u.ID}
	if err := s.appRepo.AddMember(ctx, membership); err != nil {
		return nil, application.ErrMembershipFailed().
			WithDetail("application_id", applicationID.String()).
			WithDetail("end_user_id", u.ID.String())
	}

	logx.WithField("account", u.Credential.Account).Info("End-user registered")
	return &u, nil
}

// FindExisting loads an end-user or fails with ENDUSER_NOT_FOUND.
func (s *EndUserService) FindExisting(ctx context.Context, id kernel.EndUserID) (*enduser.EndUser, error) {
	u, err := s.endUserRepo.FindByID(ctx, id)
	if err != nil {
		return nil, enduser.ErrEndUserNotFound().WithDetail("id", id.String())
	}
	return u, nil
}

// Update copies a non-empty changed email, a changed status and a changed
// profile onto the stored user. Contact uniqueness is re-validated with
// self-exclusion; nothing is persisted when nothing changed.
func (s *EndUserService) Update(ctx context.Context, applicationID kernel.ApplicationID, id kernel.EndUserID, patch enduser.EndUser, actor string) (*enduser.EndUser, error) {
	existing, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if patch.Email != "" && strings.ToLower(patch.Email) != existing.Email {
		existing.Email = strings.ToLower(patch.Email)
		changed = true
	}
	if patch.Status != "" && patch.Status != enduser.StatusUnknown && patch.Status != existing.Status {
		existing.Status = patch.Status
		changed = true
	}
	if patch.Profile != (iam.UserProfile{}) && !patch.Profile.Equal(existing.Profile) {
		existing.Profile = patch.Profile
		changed = true
	}
	if !changed {
		return existing, nil
	}

	if err := s.validator.ValidateContactUniqueness(ctx, applicationID, existing); err != nil {
		return nil, err
	}

	existing.Audit.Touch(actor)
	if err := s.endUserRepo.Save(ctx, *existing); err != nil {
		return nil, err
	}

	logx.WithField("end_user_id", id.String()).Info("End-user updated")
	return existing, nil
}

// UpdateProfile replaces the user's profile when it differs.
func (s *EndUserService) UpdateProfile(ctx context.Context, applicationID kernel.ApplicationID, id kernel.EndUserID, profile iam.UserProfile, actor string) (*enduser.EndUser, error) {
	return s.Update(ctx, applicationID, id, enduser.EndUser{Profile: profile}, actor)
}

// UpdatePassword re-hashes and stores the new password when the current one
// verifies; otherwise the user is returned unchanged.
func (s *EndUserService) UpdatePassword(ctx context.Context, id kernel.EndUserID, currentPassword, newPassword string, actor string) (*enduser.EndUser, error) {
	u, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Matches(currentPassword, u.Credential.Password) {
		return u, nil
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	u.Credential.Password = hashed
	u.Audit.Touch(actor)

	if err := s.endUserRepo.Save(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// Activate moves the end-user to ACTIVE.
func (s *EndUserService) Activate(ctx context.Context, id kernel.EndUserID, actor string) (*enduser.EndUser, error) {
	return s.changeStatus(ctx, id, enduser.StatusActive, actor)
}

// Suspend moves the end-user to SUSPENDED.
func (s *EndUserService) Suspend(ctx context.Context, id kernel.EndUserID, actor string) (*enduser.EndUser, error) {
	return s.changeStatus(ctx, id, enduser.StatusSuspended, actor)
}

// Terminate moves the end-user to the terminal TERMINATED state.
func (s *EndUserService) Terminate(ctx context.Context, id kernel.EndUserID, actor string) (*enduser.EndUser, error) {
	return s.changeStatus(ctx, id, enduser.StatusTerminated, actor)
}

// Unregister is an alias for Terminate.
func (s *EndUserService) Unregister(ctx context.Context, id kernel.EndUserID, actor string) (*enduser.EndUser, error) {
	u, err := s.Terminate(ctx, id, actor)
	if err != nil {
		return nil, err
	}
	logx.WithField("end_user_id", id.String()).Info("End-user un-registration completed")
	return u, nil
}

// changeStatus short-circuits without persisting when the status is
// unchanged; TERMINATED admits no transitions out.
func (s *EndUserService) changeStatus(ctx context.Context, id kernel.EndUserID, next enduser.Status, actor string) (*enduser.EndUser, error) {
	u, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Status == next {
		return u, nil
	}
	if u.IsTerminated() {
		return nil, enduser.ErrInvalidTransition().
			WithDetail("from", string(u.Status)).
			WithDetail("to", string(next))
	}

	u.Status = next
	u.Audit.Touch(actor)

	if err := s.endUserRepo.Save(ctx, *u); err != nil {
		return nil, err
	}
	return u, nil
}

// Delete removes the end-user and every application membership it holds, not
// just the one under the calling application.
func (s *EndUserService) Delete(ctx context.Context, applicationID kernel.ApplicationID, id kernel.EndUserID) error {
	u, err := s.FindExisting(ctx, id)
	if err != nil {
		return err
	}

	if err := s.appRepo.RemoveAllMembers(ctx, id); err != nil {
		logx.WithError(err).Warn("failed to remove application memberships during end-user delete")
	}

	if err := s.endUserRepo.Delete(ctx, id); err != nil {
		return err
	}

	logx.WithField("account", u.Credential.Account).Info("End-user deleted")
	return nil
}
