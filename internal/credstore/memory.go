package credstore

import (
	"context"
	"sync"

	"github.com/sportcenterhq/client-go/internal/models"
)

// MemoryStore holds session state for the lifetime of the process. Used in
// tests and for deployments that must not persist anything.
type MemoryStore struct {
	mu       sync.Mutex
	cred     *models.Credential
	identity *models.Identity
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) SaveCredential(_ context.Context, cred *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *cred
	s.cred = &c
	return nil
}

func (s *MemoryStore) LoadCredential(_ context.Context) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cred == nil {
		return nil, ErrNotFound
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) SaveIdentity(_ context.Context, identity *models.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := *identity
	s.identity = &i
	return nil
}

func (s *MemoryStore) LoadIdentity(_ context.Context) (*models.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity == nil {
		return nil, ErrNotFound
	}
	i := *s.identity
	return &i, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = nil
	s.identity = nil
	return nil
}
