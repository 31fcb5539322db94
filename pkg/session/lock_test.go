package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/espalier/pkg/domain"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, sess *domain.Session) error { return nil }
func (m *MockStore) Load(ctx context.Context, sessionID string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (m *MockStore) Delete(ctx context.Context, sessionID string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)         { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	// Create and delete many sessions; the lock map must not grow with them.
	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, domain.NewSession(sid, "flow", "", "", "start", time.Now()))
		_ = mgr.Delete(ctx, sid)
	}

	lockCount := len(mgr.locks)
	t.Logf("Sessions Created: %d, Locks Remaining: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
