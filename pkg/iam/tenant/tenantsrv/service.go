package tenantsrv

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/errx"
	"github.com/Abraxas-365/tenantgate/pkg/iam"
	"github.com/Abraxas-365/tenantgate/pkg/iam/auth"
	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/logx"
	"github.com/Abraxas-365/tenantgate/pkg/notifx"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
	"github.com/google/uuid"
)

// TenantService owns the tenant lifecycle state machine and the two-step
// "persist tenant then register OAuth2 client" sequence. The two steps are
// not transactionally linked: a registry failure after the tenant row was
// written leaves the tenant without a usable client.
type TenantService struct {
	tenantRepo    tenant.TenantRepository
	registry      oauth.ClientRegistry
	clientFactory *oauth.TenantClientFactory
	hasher        auth.PasswordHasher
	notifier      notifx.Notifier // optional
}

// WelcomeTemplateName identifies the tenant welcome email template. The
// template is registered on the notification client at composition time.
const WelcomeTemplateName = "tenant_welcome"

// WelcomeTemplate is the HTML body rendered when a tenant account is created.
const WelcomeTemplate = `<html><body>
<p>Hola {{.Account}},</p>
<p>Your tenant account is ready. The associated API key expires on {{.KeyExpiry}}.</p>
</body></html>`

func NewTenantService(
	tenantRepo tenant.TenantRepository,
	registry oauth.ClientRegistry,
	hasher auth.PasswordHasher,
	notifier notifx.Notifier,
) *TenantService {
	return &TenantService{
		tenantRepo:    tenantRepo,
		registry:      registry,
		clientFactory: oauth.NewTenantClientFactory(),
		hasher:        hasher,
		notifier:      notifier,
	}
}

// Register validates, persists and client-registers a new tenant. The inbound
// credential carries the raw password; it is hashed before persistence.
func (s *TenantService) Register(ctx context.Context, t tenant.Tenant, actor string) (*tenant.Tenant, error) {
	if err := s.validateRegistration(ctx, t); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(t.Credential.Password)
	if err != nil {
		return nil, err
	}
	t.Credential.Password = hashed

	t.ID = kernel.NewTenantID(uuid.NewString())
	t.Status = tenant.StatusCreated
	t.APIKey = iam.GenerateCredentialSecret(iam.DefaultSecretLength, nil)
	t.Audit = kernel.NewAuditInfo(actor)

	if err := s.tenantRepo.Save(ctx, t); err != nil {
		return nil, err
	}

	record := s.clientFactory.CreateFrom(&t)
	if err := s.registry.Register(ctx, record); err != nil {
		// No rollback: the persisted tenant is left without a usable client.
		logx.WithError(err).WithField("tenant_id", t.ID.String()).
			Warn("tenant persisted but client registration failed")
		return nil, err
	}

	logx.WithField("account", t.Credential.Account).Info("Tenant registered")
	s.sendWelcome(t)

	return &t, nil
}

func (s *TenantService) validateRegistration(ctx context.Context, t tenant.Tenant) error {
	if !t.Credential.IsComplete() {
		return tenant.ErrMissingCredential()
	}

	existing, err := s.tenantRepo.FindByAccount(ctx, t.Credential.Account)
	if err != nil && !isNotFound(err) {
		return err
	}
	if existing != nil {
		return tenant.ErrDuplicateAccount().WithDetail("account", t.Credential.Account)
	}

	existing, err = s.tenantRepo.FindByEmail(ctx, t.Email)
	if err != nil && !isNotFound(err) {
		return err
	}
	if existing != nil {
		return tenant.ErrDuplicateEmail().WithDetail("email", t.Email)
	}

	return nil
}

// FindExisting loads a tenant or fails with TENANT_NOT_FOUND.
func (s *TenantService) FindExisting(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	t, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, tenant.ErrTenantNotFound().WithDetail("id", id.String())
	}
	return t, nil
}

// GetByAccount loads a tenant by its login account.
func (s *TenantService) GetByAccount(ctx context.Context, account string) (*tenant.Tenant, error) {
	t, err := s.tenantRepo.FindByAccount(ctx, account)
	if err != nil {
		return nil, tenant.ErrTenantNotFound().WithDetail("account", account)
	}
	return t, nil
}

// Activate moves the tenant to ACTIVE.
func (s *TenantService) Activate(ctx context.Context, id kernel.TenantID, actor string) (*tenant.Tenant, error) {
	return s.changeStatus(ctx, id, tenant.StatusActive, actor)
}

// Inactivate moves the tenant to INACTIVE.
func (s *TenantService) Inactivate(ctx context.Context, id kernel.TenantID, actor string) (*tenant.Tenant, error) {
	return s.changeStatus(ctx, id, tenant.StatusInactive, actor)
}

// Lock moves the tenant to LOCKED.
func (s *TenantService) Lock(ctx context.Context, id kernel.TenantID, actor string) (*tenant.Tenant, error) {
	return s.changeStatus(ctx, id, tenant.StatusLocked, actor)
}

// Terminate moves the tenant to the terminal TERMINATED state and expires its
// credential secret. Terminating an already terminated tenant is a no-op: the
// expiry timestamp is not moved and no error is raised.
func (s *TenantService) Terminate(ctx context.Context, id kernel.TenantID, actor string) (*tenant.Tenant, error) {
	t, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.IsTerminated() {
		return t, nil
	}

	t.Status = tenant.StatusTerminated
	t.APIKey.Expire()
	t.Audit.Touch(actor)

	if err := s.tenantRepo.Save(ctx, *t); err != nil {
		return nil, err
	}

	logx.WithField("tenant_id", id.String()).Info("Tenant terminated")
	return t, nil
}

func (s *TenantService) changeStatus(ctx context.Context, id kernel.TenantID, next tenant.Status, actor string) (*tenant.Tenant, error) {
	t, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Status == next {
		return t, nil
	}
	if !t.CanTransitionTo(next) {
		return nil, tenant.ErrInvalidTransition().
			WithDetail("from", string(t.Status)).
			WithDetail("to", string(next))
	}

	t.Status = next
	t.Audit.Touch(actor)

	if err := s.tenantRepo.Save(ctx, *t); err != nil {
		return nil, err
	}
	return t, nil
}

// Update copies a non-empty changed email and a changed profile onto the
// stored tenant; nothing is persisted when neither changed.
func (s *TenantService) Update(ctx context.Context, id kernel.TenantID, patch tenant.Tenant, actor string) (*tenant.Tenant, error) {
	existing, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	changed := false
	if patch.Email != "" && patch.Email != existing.Email {
		existing.Email = patch.Email
		changed = true
	}
	if !patch.Profile.Equal(existing.Profile) && patch.Profile != (iam.UserProfile{}) {
		existing.Profile = patch.Profile
		changed = true
	}
	if !changed {
		return existing, nil
	}

	existing.Audit.Touch(actor)
	if err := s.tenantRepo.Save(ctx, *existing); err != nil {
		return nil, err
	}
	return existing, nil
}

// UpdatePassword re-hashes and stores the new password when the current one
// verifies; otherwise the tenant is returned unchanged.
func (s *TenantService) UpdatePassword(ctx context.Context, id kernel.TenantID, currentPassword, newPassword string, actor string) (*tenant.Tenant, error) {
	t, err := s.FindExisting(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.hasher.Matches(currentPassword, t.Credential.Password) {
		return t, nil
	}

	hashed, err := s.hasher.Hash(newPassword)
	if err != nil {
		return nil, err
	}
	t.Credential.Password = hashed
	t.Audit.Touch(actor)

	if err := s.tenantRepo.Save(ctx, *t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes the tenant, its credential secret and its registry entry.
// Registry removal is best-effort: a tenant without a registered client still
// deletes cleanly.
func (s *TenantService) Delete(ctx context.Context, id kernel.TenantID) error {
	t, err := s.FindExisting(ctx, id)
	if err != nil {
		return err
	}

	if err := s.registry.Remove(ctx, t.ClientID()); err != nil {
		logx.WithError(err).WithField("client_id", t.ClientID().String()).
			Warn("failed to remove client registration during tenant delete")
	}

	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return err
	}

	logx.WithField("tenant_id", id.String()).Info("Tenant deleted")
	return nil
}

func (s *TenantService) sendWelcome(t tenant.Tenant) {
	if s.notifier == nil || t.Email == "" {
		return
	}

	data := struct {
		Account   string
		KeyExpiry string
	}{
		Account:   t.Credential.Account,
		KeyExpiry: t.APIKey.ExpiresAt.Format("2006-01-02"),
	}
	msg := notifx.EmailMessage{
		To:      []string{t.Email},
		Subject: "Your tenant account is ready",
	}

	go func() {
		if err := s.notifier.SendTemplatedEmail(context.Background(), WelcomeTemplateName, data, msg); err != nil {
			logx.WithError(err).Warn("failed to send tenant welcome email")
		}
	}()
}

func isNotFound(err error) bool {
	var e *errx.Error
	if errx.As(err, &e) {
		return e.Type == errx.TypeNotFound
	}
	return false
}
