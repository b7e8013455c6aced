package tenantinfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/tenantgate/pkg/iam/tenant"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// MemoryTenantRepository is an in-memory TenantRepository used by tests.
type MemoryTenantRepository struct {
	mu      sync.RWMutex
	tenants map[kernel.TenantID]tenant.Tenant
}

func NewMemoryTenantRepository() *MemoryTenantRepository {
	return &MemoryTenantRepository{
		tenants: make(map[kernel.TenantID]tenant.Tenant),
	}
}

func (r *MemoryTenantRepository) Save(ctx context.Context, t tenant.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
	return nil
}

func (r *MemoryTenantRepository) FindByID(ctx context.Context, id kernel.TenantID) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound().WithDetail("id", id.String())
	}
	return &t, nil
}

func (r *MemoryTenantRepository) FindByAccount(ctx context.Context, account string) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tenants {
		if t.Credential.Account == account {
			found := t
			return &found, nil
		}
	}
	return nil, tenant.ErrTenantNotFound().WithDetail("account", account)
}

func (r *MemoryTenantRepository) FindByEmail(ctx context.Context, email string) (*tenant.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tenants {
		if t.Email == email {
			found := t
			return &found, nil
		}
	}
	return nil, tenant.ErrTenantNotFound().WithDetail("email", email)
}

func (r *MemoryTenantRepository) Delete(ctx context.Context, id kernel.TenantID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tenants[id]; !ok {
		return tenant.ErrTenantNotFound().WithDetail("id", id.String())
	}
	delete(r.tenants, id)
	return nil
}
