package authflow

import (
	"sync"
	"time"

	"github.com/stacyposk/logiccart-change-hub/internal/log"
)

// FlowState is the one-time secret material for an in-flight authorization
// handshake: the PKCE verifier and the anti-CSRF nonce. It lives for a single
// redirect round trip.
type FlowState struct {
	Verifier  string
	Nonce     string
	CreatedAt time.Time
}

// FlowStore holds pending flow state keyed by session. Take consumes an
// entry, so a replayed callback finds nothing and fails the state-match
// check rather than re-exchanging a code.
type FlowStore struct {
	mu    sync.Mutex
	flows map[string]FlowState
	now   func() time.Time
}

// NewFlowStore creates an empty flow store.
func NewFlowStore() *FlowStore {
	return &FlowStore{
		flows: make(map[string]FlowState),
		now:   time.Now,
	}
}

// Put stores flow state for a session, replacing any pending flow. Starting
// a new handshake invalidates the previous one.
func (s *FlowStore) Put(sessionID string, state FlowState) {
	if state.CreatedAt.IsZero() {
		state.CreatedAt = s.now()
	}
	s.mu.Lock()
	s.flows[sessionID] = state
	s.mu.Unlock()
}

// Take returns and deletes the flow state for a session. One-time use.
func (s *FlowStore) Take(sessionID string) (FlowState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.flows[sessionID]
	if ok {
		delete(s.flows, sessionID)
	}
	return state, ok
}

// StartSweep drops flow state older than ttl every interval until stop is
// closed. Abandoned handshakes should not accumulate.
func (s *FlowStore) StartSweep(ttl, interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep(ttl)
			case <-stop:
				return
			}
		}
	}()
}

func (s *FlowStore) sweep(ttl time.Duration) {
	cutoff := s.now().Add(-ttl)
	s.mu.Lock()
	removed := 0
	for sid, state := range s.flows {
		if state.CreatedAt.Before(cutoff) {
			delete(s.flows, sid)
			removed++
		}
	}
	s.mu.Unlock()
	if removed > 0 {
		log.LogDebugWithFields("authflow", "Swept abandoned flow state", map[string]any{
			"removed": removed,
		})
	}
}
