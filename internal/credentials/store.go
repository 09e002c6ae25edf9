// Package credentials holds the per-session token set obtained from the
// identity provider. Storage is transient by design: tokens live in process
// memory for at most their own lifetime and are never written anywhere
// durable or shared across sessions.
package credentials

import (
	"sync"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/log"
)

// TokenSet is the credential material for one session.
type TokenSet struct {
	IDToken     string
	AccessToken string
	ExpiresAt   int64 // absolute deadline, epoch milliseconds
}

// Expired reports whether the token set has passed its deadline.
func (t TokenSet) Expired(now time.Time) bool {
	return t.ExpiresAt <= now.UnixMilli()
}

// Store is the single place credentials are read and written. Clear is the
// only invalidation entry point; callers must not cache token material.
type Store interface {
	Get(sessionID string) (TokenSet, bool)
	Set(sessionID string, tokens TokenSet)
	Clear(sessionID string)
}

// MemoryStore is the only Store implementation. Expired entries are dropped
// lazily on read and by an optional background sweep.
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[string]TokenSet
	now    func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[string]TokenSet),
		now:    time.Now,
	}
}

// Get returns the token set for a session, dropping it if expired.
func (s *MemoryStore) Get(sessionID string) (TokenSet, bool) {
	s.mu.RLock()
	tokens, ok := s.tokens[sessionID]
	s.mu.RUnlock()
	if !ok {
		return TokenSet{}, false
	}
	if tokens.Expired(s.now()) {
		s.Clear(sessionID)
		return TokenSet{}, false
	}
	return tokens, true
}

// Set stores the token set for a session. Last writer wins; two sessions
// completing a flow concurrently simply overwrite each other.
func (s *MemoryStore) Set(sessionID string, tokens TokenSet) {
	s.mu.Lock()
	s.tokens[sessionID] = tokens
	s.mu.Unlock()
}

// Clear removes the token set for a session. Idempotent.
func (s *MemoryStore) Clear(sessionID string) {
	s.mu.Lock()
	delete(s.tokens, sessionID)
	s.mu.Unlock()
}

// StartSweep evicts expired token sets every interval until stop is closed.
func (s *MemoryStore) StartSweep(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-stop:
				return
			}
		}
	}()
}

func (s *MemoryStore) sweep() {
	now := s.now()
	s.mu.Lock()
	removed := 0
	for sid, tokens := range s.tokens {
		if tokens.Expired(now) {
			delete(s.tokens, sid)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		log.LogDebugWithFields("credentials", "Swept expired token sets", map[string]any{
			"removed": removed,
		})
	}
}
