package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionManager maps browser client ids to their session stores.
type SessionManager struct {
	mu      sync.Mutex
	stores  map[string]*SessionStore
	minter  TokenMinter
	idleTTL time.Duration
	now     func() time.Time
}

// SessionManagerOption customizes a SessionManager.
type SessionManagerOption func(*SessionManager)

// WithTokenMinter overrides the token minter handed to new stores.
func WithTokenMinter(minter TokenMinter) SessionManagerOption {
	return func(m *SessionManager) {
		m.minter = minter
	}
}

// WithSessionClock injects the clock used for idle tracking.
func WithSessionClock(now func() time.Time) SessionManagerOption {
	return func(m *SessionManager) {
		if now != nil {
			m.now = now
		}
	}
}

// NewSessionManager builds a manager that drops stores idle for longer than idleTTL.
// A zero idleTTL disables cleanup.
func NewSessionManager(idleTTL time.Duration, opts ...SessionManagerOption) *SessionManager {
	m := &SessionManager{
		stores:  make(map[string]*SessionStore),
		idleTTL: idleTTL,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.minter == nil {
		m.minter = NewJWTMinter()
	}
	return m
}

// Get returns the store for a client id.
func (m *SessionManager) Get(clientID string) (*SessionStore, bool) {
	if clientID == "" {
		return nil, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.stores[clientID]
	if ok {
		store.touch(m.now())
	}
	return store, ok
}

// Ensure returns the store for clientID, creating one (and a new id when
// clientID is empty or unknown). The returned id must be handed back to the client.
func (m *SessionManager) Ensure(clientID string) (string, *SessionStore) {
	if store, ok := m.Get(clientID); ok {
		return clientID, store
	}
	if clientID == "" {
		clientID = uuid.NewString()
	}
	store := NewSessionStore(m.minter)
	store.touch(m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.stores[clientID]; ok {
		return clientID, existing
	}
	m.stores[clientID] = store
	return clientID, store
}

// Remove drops a client's store.
func (m *SessionManager) Remove(clientID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, clientID)
}

// Len reports the number of tracked clients.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.stores)
}

// Cleanup removes stores idle past the configured horizon and returns how many were dropped.
func (m *SessionManager) Cleanup() int {
	if m.idleTTL <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idleTTL)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, store := range m.stores {
		if store.idleSince().Before(cutoff) {
			delete(m.stores, id)
			removed++
		}
	}
	return removed
}

// Run calls Cleanup on every tick until ctx is done.
func (m *SessionManager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
