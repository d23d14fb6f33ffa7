package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "***"

type redactMiddleware struct {
	next     ports.ProgressStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks module and interactable
// state values whose key matches one of the patterns before they are saved.
// The caller's document is left untouched.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.ProgressStore) ports.ProgressStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, profileID string, progress *domain.Progress) error {
	cloned := *progress
	cloned.Modules = make(map[string]*domain.ModuleProgress, len(progress.Modules))
	for id, mp := range progress.Modules {
		if mp == nil {
			continue
		}
		c := *mp
		c.State = deepCopyMap(mp.State)
		maskMap(c.State, m.patterns)
		c.Interactables = make(map[string]map[string]any, len(mp.Interactables))
		for iid, values := range mp.Interactables {
			copied := deepCopyMap(values)
			maskMap(copied, m.patterns)
			c.Interactables[iid] = copied
		}
		cloned.Modules[id] = &c
	}
	return m.next.Save(ctx, profileID, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, profileID string) (*domain.Progress, error) {
	return m.next.Load(ctx, profileID)
}

func (m *redactMiddleware) Delete(ctx context.Context, profileID string) error {
	return m.next.Delete(ctx, profileID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = Mask
				masked = true
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok && !masked {
			maskMap(subMap, patterns)
		}
	}
}
