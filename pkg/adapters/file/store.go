package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/lessonweave/pkg/domain"
)

const ext = ".json"

// Store implements ports.ProgressStore on the local filesystem,
// one JSON document per profile in a configured directory.
type Store struct {
	BasePath string
}

// New creates a Store rooted at basePath (default ".lessonweave/progress").
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".lessonweave", "progress")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(profileID string) (string, error) {
	if profileID == "" {
		return "", fmt.Errorf("profileID cannot be empty")
	}
	if strings.ContainsAny(profileID, `/\`) || profileID == "." || profileID == ".." {
		return "", fmt.Errorf("invalid profileID: %q", profileID)
	}
	return filepath.Join(s.BasePath, profileID+ext), nil
}

// Save writes the document to a temp file, fsyncs it, then renames it into place.
func (s *Store) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	destPath, err := s.path(profileID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure progress directory: %w", err)
	}

	data, err := json.MarshalIndent(progress, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}

	// Same directory so the rename stays on one filesystem.
	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+profileID+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// Windows refuses to rename over an existing file.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to replace progress file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to move progress file into place: %w", err)
	}
	return nil
}

// Load reads the progress document of a profile.
func (s *Store) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	filePath, err := s.path(profileID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read progress file: %w", err)
	}

	var progress domain.Progress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal progress: %w", err)
	}
	return &progress, nil
}

// Delete removes the progress file. Missing files are not an error.
func (s *Store) Delete(ctx context.Context, profileID string) error {
	filePath, err := s.path(profileID)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete progress file: %w", err)
	}
	return nil
}

// List returns the ids of all saved profiles.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}

	profiles := []string{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		profiles = append(profiles, strings.TrimSuffix(name, ext))
	}
	sort.Strings(profiles)
	return profiles, nil
}
