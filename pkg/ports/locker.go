package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker defines the interface for distributed concurrency control.
// It lets the session manager coordinate access to a profile across replicas.
type DistributedLocker interface {
	// Lock acquires a lock for the given key (a profile id).
	// It blocks until the lock is acquired or the context is canceled.
	// The returned UnlockFunc must be called to release the lock.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
