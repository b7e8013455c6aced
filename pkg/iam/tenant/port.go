package tenant

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// TenantRepository is the persistence contract for tenants. Lookups return
// ErrTenantNotFound when no row matches.
type TenantRepository interface {
	Save(ctx context.Context, t Tenant) error
	FindByID(ctx context.Context, id kernel.TenantID) (*Tenant, error)
	FindByAccount(ctx context.Context, account string) (*Tenant, error)
	FindByEmail(ctx context.Context, email string) (*Tenant, error)
	Delete(ctx context.Context, id kernel.TenantID) error
}
