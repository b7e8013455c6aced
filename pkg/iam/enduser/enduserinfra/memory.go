package enduserinfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/tenantgate/pkg/iam/application"
	"github.com/Abraxas-365/tenantgate/pkg/iam/enduser"
	"github.com/Abraxas-365/tenantgate/pkg/kernel"
)

// MemoryEndUserRepository is an in-memory EndUserRepository used by tests.
// Application-scoped lookups resolve memberships through the application
// repository, mirroring the join the postgres implementation performs.
type MemoryEndUserRepository struct {
	mu      sync.RWMutex
	users   map[kernel.EndUserID]enduser.EndUser
	appRepo application.ApplicationRepository
}

func NewMemoryEndUserRepository(appRepo application.ApplicationRepository) *MemoryEndUserRepository {
	return &MemoryEndUserRepository{
		users:   make(map[kernel.EndUserID]enduser.EndUser),
		appRepo: appRepo,
	}
}

func (r *MemoryEndUserRepository) Save(ctx context.Context, u enduser.EndUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[u.ID] = u
	return nil
}

func (r *MemoryEndUserRepository) FindByID(ctx context.Context, id kernel.EndUserID) (*enduser.EndUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, enduser.ErrEndUserNotFound().WithDetail("id", id.String())
	}
	return &u, nil
}

func (r *MemoryEndUserRepository) FindByApplicationAndAccount(ctx context.Context, applicationID kernel.ApplicationID, account string) (*enduser.EndUser, error) {
	return r.findMember(ctx, applicationID, func(u enduser.EndUser) bool {
		return u.Credential.Account == account
	})
}

func (r *MemoryEndUserRepository) FindByApplicationAndEmail(ctx context.Context, applicationID kernel.ApplicationID, email string) (*enduser.EndUser, error) {
	return r.findMember(ctx, applicationID, func(u enduser.EndUser) bool {
		return u.Email != "" && u.Email == email
	})
}

func (r *MemoryEndUserRepository) FindByTenantAndEmail(ctx context.Context, tenantID kernel.TenantID, email string) (*enduser.EndUser, error) {
	return r.find(func(u enduser.EndUser) bool {
		return u.TenantID == tenantID && u.Email != "" && u.Email == email
	})
}

func (r *MemoryEndUserRepository) FindByTenantAndMobile(ctx context.Context, tenantID kernel.TenantID, mobileNo string) (*enduser.EndUser, error) {
	return r.find(func(u enduser.EndUser) bool {
		return u.TenantID == tenantID && u.Profile.HasMobile() && u.Profile.MobilePhoneNo == mobileNo
	})
}

func (r *MemoryEndUserRepository) Delete(ctx context.Context, id kernel.EndUserID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return enduser.ErrEndUserNotFound().WithDetail("id", id.String())
	}
	delete(r.users, id)
	return nil
}

func (r *MemoryEndUserRepository) find(match func(enduser.EndUser) bool) (*enduser.EndUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, enduser.ErrEndUserNotFound()
}

func (r *MemoryEndUserRepository) findMember(ctx context.Context, applicationID kernel.ApplicationID, match func(enduser.EndUser) bool) (*enduser.EndUser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if !match(u) {
			continue
		}
		isMember, err := r.appRepo.HasMember(ctx, applicationID, u.ID)
		if err != nil {
			return nil, err
		}
		if isMember {
			found := u
			return &found, nil
		}
	}
	return nil, enduser.ErrEndUserNotFound()
}
