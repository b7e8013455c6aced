package enduser

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// EndUserRepository is the persistence contract for end-users. The
// application-scoped lookups resolve through the membership association; the
// tenant-scoped lookups use the denormalized tenant id. Lookups return
// ErrEndUserNotFound when no row matches.
type EndUserRepository interface {
	Save(ctx context.Context, u EndUser) error
	FindByID(ctx context.Context, id kernel.EndUserID) (*EndUser, error)
	FindByApplicationAndAccount(ctx context.Context, applicationID kernel.ApplicationID, account string) (*EndUser, error)
	FindByApplicationAndEmail(ctx context.Context, applicationID kernel.ApplicationID, email string) (*EndUser, error)
	FindByTenantAndEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*EndUser, error)
	FindByTenantAndMobile(ctx context.Context, tenantID kernel.TenantID, mobileNo string) (*EndUser, error)
	Delete(ctx context.Context, id kernel.EndUserID) error
}
