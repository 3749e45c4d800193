package memory

import (
	"context"
	"sync"
)

// IdentityStore keeps the client id in process memory. Used by tests and by
// throwaway CLI profiles.
type IdentityStore struct {
	mu sync.Mutex
	id string
}

func NewIdentityStore() *IdentityStore {
	return &IdentityStore{}
}

func (s *IdentityStore) Load(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id, nil
}

func (s *IdentityStore) Save(_ context.Context, clientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = clientID
	return nil
}
