package ports

import (
	"context"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// ProgressStore defines the interface for persisting player progress.
// One document per profile holds module progress and the progression map.
type ProgressStore interface {
	// Save persists the progress document of a profile.
	Save(ctx context.Context, profileID string, progress *domain.Progress) error

	// Load retrieves the progress document of a profile.
	// Returns domain.ErrProfileNotFound if the profile has no saved progress.
	Load(ctx context.Context, profileID string) (*domain.Progress, error)

	// Delete removes the progress document of a profile.
	Delete(ctx context.Context, profileID string) error

	// List returns the ids of all profiles with saved progress.
	List(ctx context.Context) ([]string, error)
}
