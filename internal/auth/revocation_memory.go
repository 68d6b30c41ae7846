package auth

import (
	"sync"
	"time"
)

// NewInMemoryRevocationStore returns a RevocationStore backed by a map.
// Entries live until the revoked token would have expired anyway, so the set
// stays bounded by the number of logouts inside one session TTL. State is
// process-local and lost on restart.
func NewInMemoryRevocationStore() *InMemoryRevocationStore {
	return &InMemoryRevocationStore{entries: make(map[string]time.Time)}
}

// InMemoryRevocationStore implements RevocationStore for single-process
// deployments and tests.
type InMemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time

	now func() time.Time
}

// Revoke records the token id until expiresAt.
func (s *InMemoryRevocationStore) Revoke(jti string, expiresAt time.Time) {
	if jti == "" {
		return
	}
	now := s.clock()
	if !expiresAt.After(now) {
		return
	}
	s.mu.Lock()
	s.entries[jti] = expiresAt
	s.gcLocked(now)
	s.mu.Unlock()
}

// IsRevoked reports whether the token id is currently rejected.
func (s *InMemoryRevocationStore) IsRevoked(jti string) bool {
	now := s.clock()
	s.mu.RLock()
	expiresAt, ok := s.entries[jti]
	s.mu.RUnlock()
	return ok && expiresAt.After(now)
}

func (s *InMemoryRevocationStore) gcLocked(now time.Time) {
	for jti, expiresAt := range s.entries {
		if !expiresAt.After(now) {
			delete(s.entries, jti)
		}
	}
}

func (s *InMemoryRevocationStore) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// WithNowFunc allows tests to override the time source.
func (s *InMemoryRevocationStore) WithNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}
