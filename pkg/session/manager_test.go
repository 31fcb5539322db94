package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/espalier/pkg/domain"
	"github.com/aretw0/espalier/pkg/ports"
	"github.com/aretw0/espalier/pkg/session"
)

// SlowStore simulates IO latency to provoke race conditions if locking is missing.
type SlowStore struct {
	data map[string]*domain.Session
	mu   sync.Mutex
}

func (s *SlowStore) Save(ctx context.Context, sess *domain.Session) error {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		s.data = make(map[string]*domain.Session)
	}
	s.data[sess.ID] = sess
	return nil
}

func (s *SlowStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	time.Sleep(10 * time.Millisecond) // Simulate IO
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.data[sessionID]; ok {
		return sess, nil
	}
	return nil, domain.ErrSessionNotFound
}

func (s *SlowStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

func (s *SlowStore) List(ctx context.Context) ([]string, error) {
	return nil, nil
}

func newSession(id string) *domain.Session {
	return domain.NewSession(id, "flow", "", "", "start", time.Now())
}

func TestManager_Locking(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()
	id := "race-test"

	require.NoError(t, manager.Save(ctx, newSession(id)))

	var wg sync.WaitGroup
	concurrentWrites := 10

	// Writes to one session must serialize through the manager, even with a
	// slow store underneath.
	for i := 0; i < concurrentWrites; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := manager.Save(ctx, newSession(id))
			assert.NoError(t, err)
		}()
	}

	wg.Wait()

	loaded, err := manager.Load(ctx, id)
	assert.NoError(t, err)
	assert.Equal(t, id, loaded.ID)
}

func TestManager_Exists(t *testing.T) {
	store := &SlowStore{}
	manager := session.NewManager(store)
	ctx := context.Background()

	ok, err := manager.Exists(ctx, "nope")
	assert.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, manager.Save(ctx, newSession("yes")))
	ok, err = manager.Exists(ctx, "yes")
	assert.NoError(t, err)
	assert.True(t, ok)
}

// countingLocker records distributed lock activity.
type countingLocker struct {
	mu       sync.Mutex
	locks    int
	unlocks  int
	lastTTL  time.Duration
	lastKeys []string
}

func (l *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locks++
	l.lastTTL = ttl
	l.lastKeys = append(l.lastKeys, key)
	return func(ctx context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.unlocks++
		return nil
	}, nil
}

func TestManager_DistributedLocker(t *testing.T) {
	store := &SlowStore{}
	locker := &countingLocker{}
	manager := session.NewManager(store,
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)
	ctx := context.Background()

	require.NoError(t, manager.Save(ctx, newSession("s1")))
	require.NoError(t, manager.Delete(ctx, "s1"))

	assert.Equal(t, 2, locker.locks)
	assert.Equal(t, 2, locker.unlocks)
	assert.Equal(t, 5*time.Second, locker.lastTTL)
	assert.Equal(t, []string{"s1", "s1"}, locker.lastKeys)
}
