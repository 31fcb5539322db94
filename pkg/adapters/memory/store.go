package memory

import (
	"context"
	"sync"

	"github.com/aretw0/espalier/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Session
	mu   sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Session),
	}
}

// Save persists the session in memory.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	copied := cloneSession(sess)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sess.ID] = copied
	return nil
}

// Load retrieves the session from memory.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(sess), nil
}

// Delete removes the session. Deleting a missing session is a no-op.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the ids of all stored sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

// cloneSession copies the session so callers can't mutate stored state
// through shared maps or slices, mirroring serializing stores.
func cloneSession(sess *domain.Session) *domain.Session {
	copied := *sess
	copied.Variables = make(map[string]string, len(sess.Variables))
	for k, v := range sess.Variables {
		copied.Variables[k] = v
	}
	if sess.History != nil {
		copied.History = make([]domain.Interaction, len(sess.History))
		copy(copied.History, sess.History)
	}
	return &copied
}
