package applicationsrv

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/logx"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/google/uuid"
)

// ApplicationService manages tenant-owned applications and their OAuth2
// client registrations. Every operation that names a tenant account verifies
// ownership before touching the application.
type ApplicationService struct {
	appRepo       application.ApplicationRepository
	tenantRepo    tenant.TenantRepository
	registry      oauth.ClientRegistry
	clientFactory *oauth.ApplicationClientFactory
}

func NewApplicationService(
	appRepo application.ApplicationRepository,
	tenantRepo tenant.TenantRepository,
	registry oauth.ClientRegistry,
) *ApplicationService {
	return &ApplicationService{
		appRepo:       appRepo,
		tenantRepo:    tenantRepo,
		registry:      registry,
		clientFactory: oauth.NewApplicationClientFactory(),
	}
}

// UpdateRequest carries the optional fields of an application update. Nil
// pointers leave the stored value untouched.
type UpdateRequest struct {
	Name            *string             `json:"name,omitempty"`
	DisabledNewUser *bool               `json:"disabled_new_user,omitempty"`
	Status          *application.Status `json:"status,omitempty"`
	GrantTypes      []string            `json:"grant_types,omitempty"`
	Authorities     []string            `json:"authorities,omitempty"`
	Scopes          []string            `json:"scopes,omitempty"`
	RedirectURIs    []string            `json:"redirect_uris,omitempty"`
}

// Create persists a new application under the tenant identified by account
// and registers its derived OAuth2 client. The two steps are best-effort
// sequential, not transactional.
func (s *ApplicationService) Create(ctx context.Context, tenantAccount string, app application.Application, actor string) (*application.Application, error) {
	if app.Name == "" {
		return nil, application.ErrMissingName()
	}

	owner, err := s.ownerByAccount(ctx, tenantAccount)
	if err != nil {
		return nil, err
	}

	existing, err := s.appRepo.FindByNameAndOwner(ctx, app.Name, owner.ID)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, application.ErrDuplicateName().WithDetail("name", app.Name)
	}

	app.ID = kernel.NewApplicationID(uuid.NewString())
	app.Status = application.StatusCreated
	app.APIKey = iam.GenerateCredentialSecret(iam.DefaultSecretLength, nil).Secret
	app.OwnerID = owner.ID
	app.Audit = kernel.NewAuditInfo(actor)

	if err := s.appRepo.Save(ctx, app); err != nil {
		return nil, err
	}

	record := s.clientFactory.CreateFrom(&app)
	if err := s.registry.Register(ctx, record); err != nil {
		// No rollback: the persisted application has no usable client.
		logx.WithError(err).WithField("application_id", app.ID.String()).
			Warn("application persisted but client registration failed")
		return nil, err
	}

	logx.WithFields(logx.Fields{
		"application_id": app.ID.String(),
		"tenant":         tenantAccount,
	}).Info("Application created")

	return &app, nil
}

// FindExisting loads an application or fails with APP_NOT_FOUND.
func (s *ApplicationService) FindExisting(ctx context.Context, id kernel.ApplicationID) (*application.Application, error) {
	app, err := s.appRepo.FindByID(ctx, id)
	if err != nil {
		return nil, application.ErrApplicationNotFound().WithDetail("id", id.String())
	}
	return app, nil
}

// CheckExists fails with APP_NOT_FOUND when the application is absent.
func (s *ApplicationService) CheckExists(ctx context.Context, id kernel.ApplicationID) error {
	_, err := s.FindExisting(ctx, id)
	return err
}

// FindOneOf returns the application only when the tenant owns it.
func (s *ApplicationService) FindOneOf(ctx context.Context, tenantAccount string, id kernel.ApplicationID) (*application.Application, error) {
	owner, err := s.ownerByAccount(ctx, tenantAccount)
	if err != nil {
		return nil, err
	}

	app, err := s.appRepo.FindByIDAndOwner(ctx, id, owner.ID)
	if err != nil {
		return nil, application.ErrApplicationNotFound().WithDetail("id", id.String())
	}
	return app, nil
}

// FindAllOf lists the tenant's applications.
func (s *ApplicationService) FindAllOf(ctx context.Context, tenantAccount string, opts kernel.PaginationOptions) (kernel.Paginated[application.Application], error) {
	owner, err := s.ownerByAccount(ctx, tenantAccount)
	if err != nil {
		return kernel.Paginated[application.Application]{}, err
	}
	return s.appRepo.FindByOwner(ctx, owner.ID, opts.Normalize())
}

// Update applies the patch to an application the tenant owns.
func (s *ApplicationService) Update(ctx context.Context, tenantAccount string, id kernel.ApplicationID, req UpdateRequest, actor string) (*application.Application, error) {
	app, err := s.owned(ctx, tenantAccount, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		app.Name = *req.Name
	}
	if req.DisabledNewUser != nil {
		app.DisabledNewUser = *req.DisabledNewUser
	}
	if req.Status != nil {
		app.Status = *req.Status
	}
	if req.GrantTypes != nil {
		app.GrantTypes = req.GrantTypes
	}
	if req.Authorities != nil {
		app.Authorities = req.Authorities
	}
	if req.Scopes != nil {
		app.Scopes = req.Scopes
	}
	if req.RedirectURIs != nil {
		app.RedirectURIs = req.RedirectURIs
	}
	app.Audit.Touch(actor)

	if err := s.appRepo.Save(ctx, *app); err != nil {
		return nil, err
	}
	return app, nil
}

// Activate moves the application to ACTIVE.
func (s *ApplicationService) Activate(ctx context.Context, id kernel.ApplicationID, actor string) (*application.Application, error) {
	return s.changeStatus(ctx, id, application.StatusActive, actor)
}

// Suspend moves the application to SUSPENDED.
func (s *ApplicationService) Suspend(ctx context.Context, id kernel.ApplicationID, actor string) (*application.Application, error) {
	return s.changeStatus(ctx, id, application.StatusSuspended, actor)
}

// Terminate moves the application to the terminal TERMINATED state.
func (s *ApplicationService) Terminate(ctx context.Context, id kernel.ApplicationID, actor string) (*application.Application, error) {
	return s.changeStatus(ctx, id, application.StatusTerminated, actor)
}

func (s *ApplicationService) changeStatus(ctx context.Context, id kernel.ApplicationID, next application.Status, actor string) (*application.Application, error) {
	app, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.Status == next || app.Status == application.StatusTerminated {
		return app, nil
	}

	app.Status = next
	app.Audit.Touch(actor)

	if err := s.appRepo.Save(ctx, *app); err != nil {
		return nil, err
	}
	return app, nil
}

// Delete removes an application the tenant owns together with its client
// registration. Registry removal is best-effort.
func (s *ApplicationService) Delete(ctx context.Context, tenantAccount string, id kernel.ApplicationID) error {
	app, err := s.owned(ctx, tenantAccount, id)
	if err != nil {
		return err
	}

	if err := s.registry.Remove(ctx, app.ClientID()); err != nil {
		logx.WithError(err).WithField("client_id", app.ClientID().String()).
			Warn("failed to remove client registration during application delete")
	}

	if err := s.appRepo.Delete(ctx, id); err != nil {
		return err
	}

	logx.WithField("application_id", id.String()).Info("Application deleted")
	return nil
}

func (s *ApplicationService) owned(ctx context.Context, tenantAccount string, id kernel.ApplicationID) (*application.Application, error) {
	app, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	owner, err := s.ownerByAccount(ctx, tenantAccount)
	if err != nil {
		return nil, err
	}

	if !app.IsOwnedBy(owner.ID) {
		return nil, application.ErrInvalidOwner().
			WithDetail("tenant", tenantAccount).
			WithDetail("application_id", id.String())
	}
	return app, nil
}

func (s *ApplicationService) ownerByAccount(ctx context.Context, tenantAccount string) (*tenant.Tenant, error) {
	t, err := s.tenantRepo.FindByAccount(ctx, tenantAccount)
	if err != nil {
		return nil, tenant.ErrTenantNotFound().WithDetail("account", tenantAccount)
	}
	return t, nil
}

func isNotFound(err error) bool {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Type == errx.TypeNotFound
	}
	return false
}
