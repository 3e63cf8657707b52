// Package devotp provides an in-memory store for OTP by token signature, used
// only when dev OTP mode is enabled (GET /dev/guest/otp). Lets local setups
// exercise the guest flow without an SMS gateway.
package devotp

import (
	"context"
	"sync"
	"time"
)

// Store holds plain OTP by token signature for dev-only retrieval. Not used in production.
type Store interface {
	// Put stores code for tokenSignature until expiresAt. Called when a guest
	// challenge is created in dev mode.
	Put(ctx context.Context, tokenSignature, code string, expiresAt time.Time)
	// Get returns the code for tokenSignature if present and not expired.
	Get(ctx context.Context, tokenSignature string) (code string, ok bool)
}

type entry struct {
	code      string
	expiresAt time.Time
}

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	m    map[string]entry
	nowF func() time.Time
}

// NewMemoryStore returns a new in-memory dev OTP store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		m:    make(map[string]entry),
		nowF: time.Now().UTC,
	}
}

// Put stores code for tokenSignature until expiresAt.
func (s *MemoryStore) Put(ctx context.Context, tokenSignature, code string, expiresAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[tokenSignature] = entry{code: code, expiresAt: expiresAt}
}

// Get returns the code for tokenSignature if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, tokenSignature string) (string, bool) {
	s.mu.RLock()
	e, ok := s.m[tokenSignature]
	s.mu.RUnlock()
	if !ok {
		return "", false
	}
	if !e.expiresAt.After(s.nowF()) {
		s.mu.Lock()
		delete(s.m, tokenSignature)
		s.mu.Unlock()
		return "", false
	}
	return e.code, true
}
