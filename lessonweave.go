package lessonweave

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/lessonweave/internal/logging"
	"github.com/aretw0/lessonweave/internal/progression"
	"github.com/aretw0/lessonweave/internal/runtime"
	loamAdapter "github.com/aretw0/lessonweave/pkg/adapters/loam"
	"github.com/aretw0/lessonweave/pkg/adapters/memory"
	"github.com/aretw0/lessonweave/pkg/content"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/ports"
	"github.com/aretw0/lessonweave/pkg/registry"
	"github.com/aretw0/lessonweave/pkg/session"
)

// DefaultMaxSubmission caps the size in bytes of a task submission.
const DefaultMaxSubmission = 64 << 10

// Engine is the high-level entry point of the library. It owns the module
// catalog, the stateless dialogue runtime and the progression service, and
// hands out per-profile Sessions.
type Engine struct {
	loader      ports.ModuleLoader
	store       ports.ProgressStore
	locker      ports.DistributedLocker
	lockTTL     time.Duration
	registry    *registry.Registry
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	maxSubmit   int
	keepPass    bool
	setup       []func(*registry.Registry)
	runtime     *runtime.Engine
	progression *progression.Engine
	sessions    *session.Manager

	mu      sync.RWMutex
	modules map[string]*domain.Module
	order   []string

	Name string
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLoader injects a ModuleLoader, bypassing the default Loam initialization.
func WithLoader(l ports.ModuleLoader) Option {
	return func(e *Engine) {
		e.loader = l
	}
}

// WithStore sets where progress is persisted (default: in memory).
func WithStore(s ports.ProgressStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed locking of profiles.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = l
	}
}

// WithLockTTL sets how long a distributed lock survives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls accumulate.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithRegistry shares a handler and predicate registry.
func WithRegistry(reg *registry.Registry) Option {
	return func(e *Engine) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// WithHandler registers a named handler for call-function actions.
func WithHandler(name string, fn domain.HandlerFunc) Option {
	return func(e *Engine) {
		e.setup = append(e.setup, func(r *registry.Registry) { r.Register(name, fn) })
	}
}

// WithPredicate registers a named predicate for custom conditions and requirements.
func WithPredicate(name string, fn domain.Predicate) Option {
	return func(e *Engine) {
		e.setup = append(e.setup, func(r *registry.Registry) { r.RegisterPredicate(name, fn) })
	}
}

// WithMaxSubmission sets the largest accepted submission in bytes.
func WithMaxSubmission(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxSubmit = n
		}
	}
}

// WithKeepPasswordUnlocks keeps password unlocks across Session.Initialize.
// By default Initialize relocks every subject that is not completed.
func WithKeepPasswordUnlocks(keep bool) Option {
	return func(e *Engine) {
		e.keepPass = keep
	}
}

// New initializes an Engine. By default modules are read from a Loam
// repository at contentDir; with WithLoader, contentDir is only a label.
func New(contentDir string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		registry:  registry.NewRegistry(),
		maxSubmit: DefaultMaxSubmission,
	}
	for _, opt := range opts {
		opt(eng)
	}

	for _, register := range eng.setup {
		register(eng.registry)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if contentDir != "" {
		abs, err := filepath.Abs(contentDir)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		eng.Name = filepath.Base(abs)
		eng.logger = eng.logger.With("content", eng.Name)
	}

	if eng.loader == nil {
		if contentDir == "" {
			return nil, fmt.Errorf("contentDir is required when no custom loader is provided")
		}
		decoder := content.NewDecoder(content.WithRegistry(eng.registry))
		loader, err := loamAdapter.Open(contentDir, loamAdapter.WithDecoder(decoder))
		if err != nil {
			return nil, err
		}
		eng.loader = loader
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if _, ok := eng.registry.Handler(runtime.OpenTaskHandler); !ok {
		eng.registry.Register(runtime.OpenTaskHandler, openTask)
	}

	eng.runtime = runtime.NewEngine(
		runtime.WithLogger(eng.logger),
		runtime.WithRegistry(eng.registry),
		runtime.WithTaskLookup(eng.lookupTask),
	)
	eng.progression = progression.New(
		progression.WithLogger(eng.logger),
		progression.WithLifecycleHooks(eng.hooks),
		progression.WithKeepPasswordUnlocks(eng.keepPass),
	)

	sessionOpts := []session.Option{session.WithLogger(eng.logger), session.WithLockTTL(eng.lockTTL)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(eng.store, sessionOpts...)

	return eng, nil
}

// Loader returns the underlying ModuleLoader.
func (e *Engine) Loader() ports.ModuleLoader {
	return e.loader
}

// Registry returns the handler and predicate registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}

// Sessions returns the session manager guarding progress documents.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Modules returns every module ordered by manifest order, then id.
// The catalog is loaded once and kept until Reload.
func (e *Engine) Modules(ctx context.Context) ([]*domain.Module, error) {
	e.mu.RLock()
	if e.modules != nil {
		out := e.ordered()
		e.mu.RUnlock()
		return out, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.modules != nil {
		return e.ordered(), nil
	}

	ids, err := e.loader.ListModules(ctx)
	if err != nil {
		return nil, err
	}
	modules := make(map[string]*domain.Module, len(ids))
	for _, id := range ids {
		m, err := e.loader.LoadModule(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", id, err)
		}
		modules[m.ID()] = m
	}
	e.modules = modules
	e.order = ids
	return e.ordered(), nil
}

// Module returns one module of the catalog.
func (e *Engine) Module(ctx context.Context, moduleID string) (*domain.Module, error) {
	if _, err := e.Modules(ctx); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.modules[moduleID]
	if !ok {
		return nil, domain.Errorf(domain.CodeModuleNotFound, map[string]string{"module": moduleID}, "module not found: %s", moduleID)
	}
	return m, nil
}

// Reload drops the cached catalog; the next call reads the loader again.
func (e *Engine) Reload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.modules = nil
	e.order = nil
}

// Watch reloads the catalog whenever the loader reports a change.
// It returns an error if the loader cannot watch.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	w, ok := e.loader.(interface {
		Watch(context.Context) (<-chan string, error)
	})
	if !ok {
		return nil, fmt.Errorf("current loader does not support watching")
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return nil, err
	}
	out := make(chan string, 1)
	go func() {
		defer close(out)
		for id := range changes {
			e.Reload()
			e.logger.Info("content changed, catalog reloaded", "module", id)
			select {
			case out <- id:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Session returns a handle on the progress of one profile. Handles are cheap;
// all state lives in the store.
func (e *Engine) Session(profileID string) *Session {
	return &Session{
		engine:    e,
		profileID: profileID,
		logger:    e.logger.With("profile", profileID),
	}
}

func (e *Engine) ordered() []*domain.Module {
	out := make([]*domain.Module, 0, len(e.order))
	for _, id := range e.order {
		if m, ok := e.modules[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

func (e *Engine) lookupTask(moduleID, taskID string) (*domain.Task, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m, ok := e.modules[moduleID]
	if !ok {
		return nil, false
	}
	return m.Task(taskID)
}

// openTask is the default handler behind the synthesized "begin" choice:
// it makes the task the module's current task.
func openTask(_ context.Context, dc *domain.Context, args map[string]any) error {
	if dc == nil || dc.Progress == nil {
		return runtime.ErrNoProgress
	}
	taskID, _ := args["task"].(string)
	if taskID == "" {
		return fmt.Errorf("open_task: missing task argument")
	}
	m := dc.Progress.Enter(dc.ModuleID)
	if !m.IsTaskComplete(taskID) {
		m.CurrentTaskID = taskID
	}
	return nil
}
