package auth

import (
	"context"
	"sync"
)

// MemorySessions keeps sessions in process memory. Sessions are lost on
// restart.
type MemorySessions struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

var _ SessionStore = (*MemorySessions)(nil)

func NewMemorySessions() *MemorySessions {
	return &MemorySessions{sessions: make(map[string]Session)}
}

func (m *MemorySessions) Get(ctx context.Context, token string) (*Session, error) {
	m.mu.RLock()
	session, exists := m.sessions[token]
	m.mu.RUnlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	return &session, nil
}

func (m *MemorySessions) Save(ctx context.Context, session *Session) error {
	m.mu.Lock()
	m.sessions[session.Token] = *session
	m.mu.Unlock()
	return nil
}

func (m *MemorySessions) Destroy(ctx context.Context, token string) error {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
	return nil
}
