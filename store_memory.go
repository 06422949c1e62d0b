package session

import (
	"context"
	"sync"
)

var _ TokenStore = (*MemoryStore)(nil)

// MemoryStore is a TokenStore that lives for the process only. It backs
// tests and environments without durable storage.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values: map[string]string{},
	}
}

func (s *MemoryStore) Save(_ context.Context, token string, user *User) error {
	rawUser, err := encodeUser(user)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[StoreKeyLoggedIn] = "true"
	s.values[StoreKeyUser] = rawUser
	s.values[StoreKeyToken] = token
	return nil
}

func (s *MemoryStore) Load(_ context.Context) (StoredState, error) {
	s.mu.RLock()
	state, stale := decodeStoredState(
		s.values[StoreKeyLoggedIn],
		s.values[StoreKeyUser],
		s.values[StoreKeyToken],
	)
	s.mu.RUnlock()

	if stale {
		s.reset()
	}

	return state, nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.reset()
	return nil
}

// Seed writes a raw value, bypassing Save. Useful for tests that need to
// plant corrupted entries.
func (s *MemoryStore) Seed(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get reads a raw stored value.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemoryStore) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, StoreKeyLoggedIn)
	delete(s.values, StoreKeyUser)
	delete(s.values, StoreKeyToken)
}
