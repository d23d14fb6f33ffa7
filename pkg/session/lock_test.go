package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/lessonweave/pkg/domain"
)

type nopStore struct{}

func (nopStore) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	return nil
}
func (nopStore) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	return nil, domain.ErrProfileNotFound
}
func (nopStore) Delete(ctx context.Context, profileID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)         { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		pid := fmt.Sprintf("profile-%d", i)
		_ = mgr.Save(ctx, pid, domain.NewProgress(pid))
		_ = mgr.Delete(ctx, pid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
