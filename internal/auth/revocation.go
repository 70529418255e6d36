package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryRevocationStore keeps revoked token ids in process memory.
// It is used when no redis address is configured.
type MemoryRevocationStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemoryRevocationStore creates an empty store.
func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{expires: make(map[string]time.Time), now: time.Now}
}

// Revoke records tokenID until ttl elapses.
func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, exp := range s.expires {
		if now.After(exp) {
			delete(s.expires, id)
		}
	}
	s.expires[tokenID] = now.Add(ttl)
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exp, ok := s.expires[tokenID]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.expires, tokenID)
		return false, nil
	}
	return true, nil
}
