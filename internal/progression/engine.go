// Package progression implements unlock requirements and the propagation of
// completion events across modules and interactables.
package progression

import (
	"log/slog"

	"github.com/aretw0/lessonweave/internal/logging"
	"github.com/aretw0/lessonweave/pkg/domain"
)

// Engine evaluates unlock requirements and cascades progression changes.
// It is stateless; every call receives the progress document it operates on.
type Engine struct {
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	keepPassword bool
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observers for unlocks and completions.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithKeepPasswordUnlocks makes InitializeProgression leave unlocked subjects
// whose requirement contains a password as they are.
func WithKeepPasswordUnlocks(keep bool) Option {
	return func(e *Engine) {
		e.keepPassword = keep
	}
}

// New creates a progression engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subjects lists every gated subject of the modules: each module followed by its interactables.
func Subjects(modules []*domain.Module) []domain.Subject {
	var out []domain.Subject
	for _, m := range modules {
		if m == nil {
			continue
		}
		out = append(out, m.Subject())
		for i := range m.Interactables {
			out = append(out, m.InteractableSubject(&m.Interactables[i]))
		}
	}
	return out
}
