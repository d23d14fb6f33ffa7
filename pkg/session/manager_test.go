package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/pkg/adapters/memory"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/ports"
	"github.com/aretw0/lessonweave/pkg/session"
)

// slowStore adds latency so unserialized read-modify-write cycles lose updates.
type slowStore struct {
	*memory.Store
}

func (s slowStore) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Load(ctx, profileID)
}

func (s slowStore) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	time.Sleep(2 * time.Millisecond)
	return s.Store.Save(ctx, profileID, progress)
}

func TestManager_UpdateSerializes(t *testing.T) {
	manager := session.NewManager(slowStore{memory.NewStore()})
	ctx := context.Background()
	id := "race-test"

	var wg sync.WaitGroup
	writers := 10
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := manager.Update(ctx, id, func(_ context.Context, p *domain.Progress) error {
				m := p.Enter("basics")
				n, _ := m.ModuleValue("count")
				count, _ := n.(int)
				m.SetModuleValue("count", count+1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	progress, err := manager.Load(ctx, id)
	require.NoError(t, err)
	m, ok := progress.Module("basics")
	require.True(t, ok)
	count, _ := m.ModuleValue("count")
	assert.Equal(t, writers, count)
}

func TestManager_LoadOrCreate(t *testing.T) {
	store := memory.NewStore()
	manager := session.NewManager(slowStore{store})
	ctx := context.Background()
	id := "atomic-init"

	_, err := manager.Load(ctx, id)
	require.ErrorIs(t, err, domain.ErrProfileNotFound)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			progress, err := manager.LoadOrCreate(ctx, id)
			assert.NoError(t, err)
			assert.NotNil(t, progress)
		}()
	}
	wg.Wait()

	progress, err := manager.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, progress.ProfileID)
	assert.False(t, progress.UpdatedAt.IsZero())

	ids, err := manager.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{id}, ids)
}

func TestManager_UpdateAbortsOnError(t *testing.T) {
	manager := session.NewManager(memory.NewStore())
	ctx := context.Background()
	boom := errors.New("boom")

	_, err := manager.Update(ctx, "p1", func(_ context.Context, p *domain.Progress) error {
		p.Enter("basics")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = manager.Load(ctx, "p1")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

type recordingLocker struct {
	mu       sync.Mutex
	locked   []string
	released int
	ttl      time.Duration
}

func (l *recordingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.locked = append(l.locked, key)
	l.ttl = ttl
	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &recordingLocker{}
	manager := session.NewManager(memory.NewStore(),
		session.WithLocker(locker),
		session.WithLockTTL(5*time.Second),
	)

	require.NoError(t, manager.Save(context.Background(), "p1", domain.NewProgress("p1")))

	assert.Equal(t, []string{"p1"}, locker.locked)
	assert.Equal(t, 1, locker.released)
	assert.Equal(t, 5*time.Second, locker.ttl)
}
