package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Registry manages the named handlers invoked by call-function actions and the named
// predicates referenced by authored content.
type Registry struct {
	mu         sync.RWMutex
	handlers   map[string]domain.HandlerFunc
	predicates map[string]domain.Predicate
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		handlers:   make(map[string]domain.HandlerFunc),
		predicates: make(map[string]domain.Predicate),
	}
}

// Register adds a handler to the registry.
// If a handler with the same name exists, it is overwritten.
func (r *Registry) Register(name string, fn domain.HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = fn
}

// RegisterPredicate adds a named predicate.
func (r *Registry) RegisterPredicate(name string, fn domain.Predicate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predicates[name] = fn
}

// Handler looks up a handler by name.
func (r *Registry) Handler(name string) (domain.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.handlers[name]
	return fn, ok
}

// Predicate looks up a predicate by name.
func (r *Registry) Predicate(name string) (domain.Predicate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.predicates[name]
	return fn, ok
}

// Execute looks up a handler by name and executes it.
// Returns domain.ErrHandlerNotFound if the handler is not registered.
func (r *Registry) Execute(ctx context.Context, name string, dc *domain.Context, args map[string]any) error {
	fn, ok := r.Handler(name)
	if !ok {
		return domain.Errorf(domain.CodeHandlerNotFound, map[string]string{"handler": name}, "handler not found: %s", name)
	}
	if err := fn(ctx, dc, args); err != nil {
		return fmt.Errorf("handler %s: %w", name, err)
	}
	return nil
}

// Handlers lists registered handler names in sorted order.
func (r *Registry) Handlers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
