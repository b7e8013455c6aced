package endusersrv

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// RegistrationValidator enforces the uniqueness and required-field invariants
// before an end-user is created. Checks run in order and fail fast on the
// first violation; nothing is aggregated.
type RegistrationValidator struct {
	endUserRepo enduser.EndUserRepository
	appRepo     application.ApplicationRepository
}

func NewRegistrationValidator(endUserRepo enduser.EndUserRepository, appRepo application.ApplicationRepository) *RegistrationValidator {
	return &RegistrationValidator{
		endUserRepo: endUserRepo,
		appRepo:     appRepo,
	}
}

// Validate runs the full registration check sequence:
//
//  1. the application must exist and accept new users,
//  2. the candidate must carry a complete login credential,
//  3. the account must be free within the application,
//  4. a non-empty email must be free within the owning tenant,
//  5. a non-empty mobile number must be free within the owning tenant.
//
// The email and mobile checks exclude the candidate itself by id, so an
// update carrying the user's own unchanged contact data never self-triggers
// a duplicate error.
func (v *RegistrationValidator) Validate(ctx context.Context, applicationID kernel.ApplicationID, candidate *enduser.EndUser) error {
	app, err := v.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return application.ErrApplicationNotFound().WithDetail("id", applicationID.String())
	}
	if app.DisabledNewUser {
		return application.ErrRegistrationDisabled().WithDetail("application_id", applicationID.String())
	}

	if !candidate.Credential.IsComplete() {
		return enduser.ErrMissingCredential()
	}

	existing, err := v.endUserRepo.FindByApplicationAndAccount(ctx, applicationID, candidate.Credential.Account)
	if err != nil && !isNotFound(err) {
		return err
	}
	if existing != nil {
		return enduser.ErrDuplicateAccount().WithDetail("account", candidate.Credential.Account)
	}

	return v.ValidateContactUniqueness(ctx, applicationID, candidate)
}

// ValidateContactUniqueness runs only the tenant-scoped email and mobile
// checks, excluding the candidate itself. Update flows use it directly since
// account and credential are immutable there.
func (v *RegistrationValidator) ValidateContactUniqueness(ctx context.Context, applicationID kernel.ApplicationID, candidate *enduser.EndUser) error {
	app, err := v.appRepo.FindByID(ctx, applicationID)
	if err != nil {
		return application.ErrApplicationNotFound().WithDetail("id", applicationID.String())
	}

	if candidate.Email != "" {
		existing, err := v.endUserRepo.FindByTenantAndEmail(ctx, app.OwnerID, candidate.Email)
		if err != nil && !isNotFound(err) {
			return err
		}
		if existing != nil && existing.ID != candidate.ID {
			return enduser.ErrDuplicateEmail().WithDetail("email", candidate.Email)
		}
	}

	if candidate.Profile.HasMobile() {
		existing, err := v.endUserRepo.FindByTenantAndMobile(ctx, app.OwnerID, candidate.Profile.MobilePhoneNo)
		if err != nil && !isNotFound(err) {
			return err
		}
		if existing != nil && existing.ID != candidate.ID {
			return enduser.ErrDuplicateMobile().WithDetail("mobile_phone_no", candidate.Profile.MobilePhoneNo)
		}
	}

	return nil
}

func isNotFound(err error) bool {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Type == errx.TypeNotFound
	}
	return false
}
