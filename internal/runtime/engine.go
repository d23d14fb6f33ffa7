package runtime

import (
	"log/slog"

	"github.com/aretw0/lessonweave/internal/logging"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/registry"
)

// TaskLookup resolves task metadata for synthesized task screens.
type TaskLookup func(moduleID, taskID string) (*domain.Task, bool)

// Engine is the dialogue resolution engine: field resolution, condition evaluation,
// navigation and the action pipeline. It holds no session state.
type Engine struct {
	logger   *slog.Logger
	registry *registry.Registry
	tasks    TaskLookup
}

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRegistry sets the handler registry used by call-function actions.
func WithRegistry(reg *registry.Registry) EngineOption {
	return func(e *Engine) {
		if reg != nil {
			e.registry = reg
		}
	}
}

// WithTaskLookup sets the task metadata source for synthesized task screens.
func WithTaskLookup(fn TaskLookup) EngineOption {
	return func(e *Engine) {
		e.tasks = fn
	}
}

// NewEngine creates a new engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   logging.NewNop(),
		registry: registry.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the handler registry.
func (e *Engine) Registry() *registry.Registry {
	return e.registry
}
