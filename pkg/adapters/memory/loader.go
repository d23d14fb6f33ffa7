package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Loader implements ports.ModuleLoader over modules held in memory.
// Safe for concurrent use.
type Loader struct {
	mu      sync.RWMutex
	modules map[string]*domain.Module
}

// NewLoader creates a loader from domain modules.
func NewLoader(modules ...*domain.Module) (*Loader, error) {
	l := &Loader{modules: make(map[string]*domain.Module, len(modules))}
	for _, m := range modules {
		if err := l.Add(m); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Add registers a module, replacing any module with the same id.
func (l *Loader) Add(m *domain.Module) error {
	if m == nil || m.ID() == "" {
		return fmt.Errorf("module missing ID")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.modules[m.ID()] = m
	return nil
}

// LoadModule returns the module with the given id.
func (l *Loader) LoadModule(ctx context.Context, id string) (*domain.Module, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.modules[id]
	if !ok {
		return nil, domain.Errorf(domain.CodeModuleNotFound, map[string]string{"module": id}, "module not found: %s", id)
	}
	return m, nil
}

// ListModules returns module ids ordered by manifest order, then id.
func (l *Loader) ListModules(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	manifests := make([]domain.Manifest, 0, len(l.modules))
	for _, m := range l.modules {
		manifests = append(manifests, m.Manifest)
	}
	slices.SortFunc(manifests, domain.CompareManifests)

	ids := make([]string, 0, len(manifests))
	for _, mf := range manifests {
		ids = append(ids, mf.ID)
	}
	return ids, nil
}
