package ports

import (
	"context"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// ModuleLoader defines how the engine discovers authored modules.
// This allows the content source (Loam, FS, Memory) to be decoupled.
type ModuleLoader interface {
	// LoadModule loads a module by id.
	// Returns an error matching domain.ErrModuleNotFound when the id is unknown.
	LoadModule(ctx context.Context, id string) (*domain.Module, error)

	// ListModules returns the ids of every available module, ordered by manifest order then id.
	ListModules(ctx context.Context) ([]string, error)
}
