package applicationinfra

import (
	"context"
	"sort"
	"sync"

	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// MemoryApplicationRepository is an in-memory ApplicationRepository used by
// tests.
type MemoryApplicationRepository struct {
	mu      sync.RWMutex
	apps    map[kernel.ApplicationID]application.Application
	members map[application.Membership]struct{}
}

func NewMemoryApplicationRepository() *MemoryApplicationRepository {
	return &MemoryApplicationRepository{
		apps:    make(map[kernel.ApplicationID]application.Application),
		members: make(map[application.Membership]struct{}),
	}
}

func (r *MemoryApplicationRepository) Save(ctx context.Context, app application.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ID] = app
	return nil
}

func (r *MemoryApplicationRepository) FindByID(ctx context.Context, id kernel.ApplicationID) (*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok {
		return nil, application.ErrApplicationNotFound().WithDetail("id", id.String())
	}
	return &app, nil
}

func (r *MemoryApplicationRepository) FindByIDAndOwner(ctx context.Context, id kernel.ApplicationID, ownerID kernel.TenantID) (*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[id]
	if !ok || app.OwnerID != ownerID {
		return nil, application.ErrApplicationNotFound().WithDetail("id", id.String())
	}
	return &app, nil
}

func (r *MemoryApplicationRepository) FindByNameAndOwner(ctx context.Context, name string, ownerID kernel.TenantID) (*application.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, app := range r.apps {
		if app.Name == name && app.OwnerID == ownerID {
			found := app
			return &found, nil
		}
	}
	return nil, application.ErrApplicationNotFound().WithDetail("name", name)
}

func (r *MemoryApplicationRepository) FindByOwner(ctx context.Context, ownerID kernel.TenantID, opts kernel.PaginationOptions) (kernel.Paginated[application.Application], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var owned []application.Application
	for _, app := range r.apps {
		if app.OwnerID == ownerID {
			owned = append(owned, app)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Name < owned[j].Name })

	opts = opts.Normalize()
	total := len(owned)
	start := (opts.Page - 1) * opts.PageSize
	if start > total {
		start = total
	}
	end := start + opts.PageSize
	if end > total {
		end = total
	}

	return kernel.NewPaginated(owned[start:end], opts.Page, opts.PageSize, total), nil
}

func (r *MemoryApplicationRepository) Delete(ctx context.Context, id kernel.ApplicationID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[id]; !ok {
		return application.ErrApplicationNotFound().WithDetail("id", id.String())
	}
	delete(r.apps, id)

	for m := range r.members {
		if m.ApplicationID == id {
			delete(r.members, m)
		}
	}
	return nil
}

func (r *MemoryApplicationRepository) AddMember(ctx context.Context, membership application.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[membership.ApplicationID]; !ok {
		return application.ErrApplicationNotFound().WithDetail("id", membership.ApplicationID.String())
	}
	r.members[membership] = struct{}{}
	return nil
}

func (r *MemoryApplicationRepository) HasMember(ctx context.Context, applicationID kernel.ApplicationID, endUserID kernel.EndUserID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.members[application.Membership{ApplicationID: applicationID, EndUserID: endUserID}]
	return ok, nil
}

func (r *MemoryApplicationRepository) RemoveMember(ctx context.Context, membership application.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.members, membership)
	return nil
}

func (r *MemoryApplicationRepository) RemoveAllMembers(ctx context.Context, endUserID kernel.EndUserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for m := range r.members {
		if m.EndUserID == endUserID {
			delete(r.members, m)
		}
	}
	return nil
}
