// Package loam loads lessonweave modules from a Loam document repository
// (Markdown with frontmatter, JSON or YAML files).
package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/aretw0/loam"

	"github.com/aretw0/lessonweave/pkg/content"
	"github.com/aretw0/lessonweave/pkg/domain"
)

// Loader adapts a Loam repository to ports.ModuleLoader.
type Loader struct {
	Repo    *loam.TypedRepository[content.Document]
	decoder *content.Decoder
}

// Option configures the Loader.
type Option func(*Loader)

// WithDecoder sets the content decoder (and through it the predicate registry).
func WithDecoder(d *content.Decoder) Option {
	return func(l *Loader) {
		if d != nil {
			l.decoder = d
		}
	}
}

// New creates a Loam adapter over a typed repository.
func New(repo *loam.TypedRepository[content.Document], opts ...Option) *Loader {
	l := &Loader{
		Repo:    repo,
		decoder: content.NewDecoder(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Open initializes a read-only, strict Loam repository at dir and wraps it.
// Strict mode makes every adapter return json.Number for numbers.
func Open(dir string, opts ...Option) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[content.Document](repo), opts...), nil
}

// LoadModule loads and decodes a module. The id may be the file name without
// extension or the id declared in the document.
func (l *Loader) LoadModule(ctx context.Context, id string) (*domain.Module, error) {
	doc, err := l.Repo.Get(ctx, id)
	if err == nil {
		return l.decode(doc.ID, doc.Data, doc.Content)
	}

	docs, listErr := l.Repo.List(ctx)
	if listErr != nil {
		return nil, domain.WrapError(domain.CodeModuleLoadFailed, "list modules", listErr)
	}
	for _, d := range docs {
		if trimExtension(d.Data.ID) == id {
			return l.decode(d.ID, d.Data, d.Content)
		}
	}
	return nil, domain.WrapError(domain.CodeModuleNotFound, fmt.Sprintf("module not found: %s", id), err)
}

func (l *Loader) decode(docID string, data content.Document, body string) (*domain.Module, error) {
	data.ID = moduleID(docID, data)
	m, err := l.decoder.Decode(data, strings.TrimSpace(body))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", docID, err)
	}
	return m, nil
}

// ListModules lists module ids ordered by manifest order, then id.
// Two documents declaring the same id are reported as a collision.
func (l *Loader) ListModules(ctx context.Context) ([]string, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, domain.WrapError(domain.CodeModuleLoadFailed, "loam list failed", err)
	}

	seen := make(map[string]string, len(docs))
	manifests := make([]domain.Manifest, 0, len(docs))
	for _, doc := range docs {
		data := doc.Data
		data.ID = moduleID(doc.ID, data)
		if existing, ok := seen[data.ID]; ok {
			return nil, domain.Errorf(domain.CodeModuleInvalidStructure, map[string]string{"module": data.ID},
				"collision detected: module '%s' is defined in both '%s' and '%s'", data.ID, existing, doc.ID)
		}
		seen[data.ID] = doc.ID

		mf, err := content.ManifestOf(data)
		if err != nil {
			return nil, fmt.Errorf("manifest of %s: %w", doc.ID, err)
		}
		manifests = append(manifests, mf)
	}
	slices.SortFunc(manifests, domain.CompareManifests)

	ids := make([]string, 0, len(manifests))
	for _, mf := range manifests {
		ids = append(ids, mf.ID)
	}
	return ids, nil
}

// Watch signals the ids of changed documents until ctx is done.
func (l *Loader) Watch(ctx context.Context) (<-chan string, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan string, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				select {
				case ch <- trimExtension(evt.ID):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ch, nil
}

func moduleID(docID string, data content.Document) string {
	if data.ID != "" {
		return trimExtension(data.ID)
	}
	return trimExtension(docID)
}

func trimExtension(id string) string {
	return filepath.ToSlash(strings.TrimSuffix(id, filepath.Ext(id)))
}
