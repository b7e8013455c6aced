package application

import (
	"context"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// ApplicationRepository is the persistence contract for applications and
// their end-user memberships. Lookups return ErrApplicationNotFound when no
// row matches.
type ApplicationRepository interface {
	Save(ctx context.Context, app Application) error
	FindByID(ctx context.Context, id kernel.ApplicationID) (*Application, error)
	FindByIDAndOwner(ctx context.Context, id kernel.ApplicationID, ownerID kernel.TenantID) (*Application, error)
	FindByNameAndOwner(ctx context.Context, name string, ownerID kernel.TenantID) (*Application, error)
	FindByOwner(ctx context.Context, ownerID kernel.TenantID, opts kernel.PaginationOptions) (kernel.Paginated[Application], error)
	Delete(ctx context.Context, id kernel.ApplicationID) error

	AddMember(ctx context.Context, membership Membership) error
	HasMember(ctx context.Context, applicationID kernel.ApplicationID, endUserID kernel.EndUserID) (bool, error)
	RemoveMember(ctx context.Context, membership Membership) error
	RemoveAllMembers(ctx context.Context, endUserID kernel.EndUserID) error
}
