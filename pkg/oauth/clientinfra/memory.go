package clientinfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/tenantgate/pkg/kernel"
	"github.com/Abraxas-365/tenantgate/pkg/oauth"
)

// MemoryClientRegistry is an in-memory ClientRegistry, fit for tests and
// single-process deployments.
type MemoryClientRegistry struct {
	mu      sync.RWMutex
	records map[kernel.ClientID]oauth.ClientRecord
}

func NewMemoryClientRegistry() *MemoryClientRegistry {
	return &MemoryClientRegistry{
		records: make(map[kernel.ClientID]oauth.ClientRecord),
	}
}

// Register stores the record, overwriting any existing one for the same id.
func (r *MemoryClientRegistry) Register(ctx context.Context, record oauth.ClientRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ClientID] = record
	return nil
}

func (r *MemoryClientRegistry) Lookup(ctx context.Context, clientID kernel.ClientID) (*oauth.ClientRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[clientID]
	if !ok {
		return nil, oauth.ErrClientNotFound().WithDetail("client_id", clientID.String())
	}
	return &record, nil
}

// Remove deletes the record. Removing an absent client is not an error.
func (r *MemoryClientRegistry) Remove(ctx context.Context, clientID kernel.ClientID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, clientID)
	return nil
}
