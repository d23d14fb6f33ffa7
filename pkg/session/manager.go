package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/lessonweave/internal/logging"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/ports"
)

// DefaultLockTTL bounds how long a distributed lock outlives a crashed holder.
const DefaultLockTTL = 30 * time.Second

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager orchestrates progress access so read-modify-write cycles on one
// profile never interleave.
type Manager struct {
	store ports.ProgressStore

	mu    sync.Mutex
	locks map[string]*lockEntry

	locker  ports.DistributedLocker
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over the given store.
func NewManager(store ports.ProgressStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: DefaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller locks entry.mu and calls release after unlocking.
func (m *Manager) acquire(profileID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[profileID]
	if !exists {
		entry = &lockEntry{}
		m.locks[profileID] = entry
	}
	entry.refs++
	return entry
}

func (m *Manager) release(profileID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[profileID]
	if !exists {
		return
	}
	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, profileID)
	}
}

// Load retrieves saved progress. Returns domain.ErrProfileNotFound when absent.
func (m *Manager) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	var progress *domain.Progress
	err := m.WithLock(ctx, profileID, func(ctx context.Context) error {
		var err error
		progress, err = m.store.Load(ctx, profileID)
		return err
	})
	return progress, err
}

// LoadOrCreate loads progress, creating and persisting an empty document on first use.
func (m *Manager) LoadOrCreate(ctx context.Context, profileID string) (*domain.Progress, error) {
	var progress *domain.Progress
	err := m.WithLock(ctx, profileID, func(ctx context.Context) error {
		var err error
		progress, err = m.loadOrNew(ctx, profileID)
		if err != nil || !progress.UpdatedAt.IsZero() {
			return err
		}
		return m.save(ctx, profileID, progress)
	})
	return progress, err
}

// Save persists the progress document.
func (m *Manager) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	return m.WithLock(ctx, profileID, func(ctx context.Context) error {
		return m.save(ctx, profileID, progress)
	})
}

// Update runs fn on the current progress (created if absent) and saves the result
// unless fn fails. The whole cycle holds the profile lock.
func (m *Manager) Update(ctx context.Context, profileID string, fn func(context.Context, *domain.Progress) error) (*domain.Progress, error) {
	var progress *domain.Progress
	err := m.WithLock(ctx, profileID, func(ctx context.Context) error {
		current, err := m.loadOrNew(ctx, profileID)
		if err != nil {
			return err
		}
		if err := fn(ctx, current); err != nil {
			return err
		}
		if err := m.save(ctx, profileID, current); err != nil {
			return err
		}
		progress = current
		return nil
	})
	return progress, err
}

// Delete removes the progress document.
func (m *Manager) Delete(ctx context.Context, profileID string) error {
	return m.WithLock(ctx, profileID, func(ctx context.Context) error {
		return m.store.Delete(ctx, profileID)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying progress store.
func (m *Manager) Store() ports.ProgressStore {
	return m.store
}

// WithLock executes fn while holding the lock for the profile.
func (m *Manager) WithLock(ctx context.Context, profileID string, fn func(context.Context) error) error {
	entry := m.acquire(profileID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(profileID)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, profileID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"profile_id", profileID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

func (m *Manager) loadOrNew(ctx context.Context, profileID string) (*domain.Progress, error) {
	progress, err := m.store.Load(ctx, profileID)
	if err == nil {
		return progress, nil
	}
	if !errors.Is(err, domain.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return domain.NewProgress(profileID), nil
}

func (m *Manager) save(ctx context.Context, profileID string, progress *domain.Progress) error {
	progress.ProfileID = profileID
	progress.UpdatedAt = time.Now().UTC()
	if err := m.store.Save(ctx, profileID, progress); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}
