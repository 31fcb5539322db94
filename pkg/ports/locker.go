package ports

import (
	"context"
	"time"
)

// UnlockFunc is a function that releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker provides cross-replica concurrency control. It lets the
// session manager serialize access to one session across multiple instances.
type DistributedLocker interface {
	// Lock acquires a distributed lock for the given key (a session id).
	// It blocks until the lock is acquired or the context is canceled.
	// The returned UnlockFunc MUST be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
