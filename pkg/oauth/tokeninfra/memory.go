package tokeninfra

import (
	"context"
	"sync"

	"github.com/Abraxas-365/tenantgate/pkg/oauth"
)

// MemoryTokenStore is an in-memory TokenStore used by tests. Expired entries
// are dropped lazily on lookup.
type MemoryTokenStore struct {
	mu      sync.RWMutex
	access  map[string]oauth.AccessToken
	refresh map[string]oauth.RefreshToken
}

func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{
		access:  make(map[string]oauth.AccessToken),
		refresh: make(map[string]oauth.RefreshToken),
	}
}

func (s *MemoryTokenStore) SaveAccessToken(ctx context.Context, token oauth.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access[token.Token] = token
	return nil
}

func (s *MemoryTokenStore) FindAccessToken(ctx context.Context, tokenValue string) (*oauth.AccessToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.access[tokenValue]
	if !ok {
		return nil, oauth.ErrTokenNotFound()
	}
	if t.IsExpired() {
		delete(s.access, tokenValue)
		return nil, oauth.ErrTokenNotFound()
	}
	return &t, nil
}

func (s *MemoryTokenStore) RemoveAccessToken(ctx context.Context, tokenValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.access, tokenValue)
	return nil
}

func (s *MemoryTokenStore) SaveRefreshToken(ctx context.Context, token oauth.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh[token.Token] = token
	return nil
}

func (s *MemoryTokenStore) FindRefreshToken(ctx context.Context, tokenValue string) (*oauth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.refresh[tokenValue]
	if !ok {
		return nil, oauth.ErrTokenNotFound()
	}
	if t.IsExpired() {
		delete(s.refresh, tokenValue)
		return nil, oauth.ErrTokenNotFound()
	}
	return &t, nil
}

func (s *MemoryTokenStore) RemoveRefreshToken(ctx context.Context, tokenValue string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, tokenValue)
	return nil
}
