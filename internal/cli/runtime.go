// Package cli wires a lessonweave Engine from configuration for the command line tools.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/config"
	httpAdapter "github.com/aretw0/lessonweave/pkg/adapters/http"
	"github.com/aretw0/lessonweave/pkg/observability"
)

// Runtime is an engine built from configuration together with the resources it owns.
type Runtime struct {
	Engine  *lessonweave.Engine
	Metrics *observability.Metrics
	Streams *httpAdapter.StreamManager
	Logger  *slog.Logger

	backend *config.Backend
}

// NewRuntime opens the configured progress store and builds the engine over
// cfg.ContentDir. Lifecycle events are logged, counted when metrics are enabled
// and fanned out to SSE subscribers.
func NewRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger, extra ...lessonweave.Option) (*Runtime, error) {
	backend, err := cfg.OpenBackend(ctx)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{
		Streams: httpAdapter.NewStreamManager(logger),
		Logger:  logger,
		backend: backend,
	}
	hooks := observability.LogHooks(logger).Merge(rt.Streams.Hooks())
	if cfg.Metrics {
		rt.Metrics = observability.NewMetrics(nil)
		hooks = hooks.Merge(rt.Metrics.Hooks())
	}

	opts := []lessonweave.Option{
		lessonweave.WithLogger(logger),
		lessonweave.WithStore(backend.Store),
		lessonweave.WithLifecycleHooks(hooks),
		lessonweave.WithLockTTL(cfg.LockTTL),
		lessonweave.WithMaxSubmission(cfg.MaxSubmission),
		lessonweave.WithKeepPasswordUnlocks(cfg.KeepPasswordUnlocks),
	}
	if backend.Locker != nil {
		opts = append(opts, lessonweave.WithLocker(backend.Locker))
	}
	opts = append(opts, extra...)

	rt.Engine, err = lessonweave.New(cfg.ContentDir, opts...)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("error initializing engine: %w", err), backend.Close())
	}
	logger.Debug("engine ready", "content", cfg.ContentDir, "store", cfg.Store)
	return rt, nil
}

// Close releases the progress store.
func (r *Runtime) Close() error {
	if r.backend == nil || r.backend.Close == nil {
		return nil
	}
	return r.backend.Close()
}

// WatchContent reloads the catalog on content changes until ctx ends, calling
// onChange for each changed module. It logs and returns if the loader cannot watch.
func (r *Runtime) WatchContent(ctx context.Context, onChange func(moduleID string)) {
	changes, err := r.Engine.Watch(ctx)
	if err != nil {
		r.Logger.Warn("content watching unavailable", "err", err)
		return
	}
	go func() {
		for id := range changes {
			if onChange != nil {
				onChange(id)
			}
		}
	}()
}
