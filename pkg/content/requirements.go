package content

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// DecodeRequirement decodes an unlock requirement such as {module: basics},
// {password: abc123}, {task: basics/hello} or {any: [...]}. A nil input means
// the subject has no requirement.
func (d *Decoder) DecodeRequirement(raw any, moduleID string) (*domain.UnlockRequirement, error) {
	if raw == nil {
		return nil, nil
	}
	r, err := d.decodeRequirement(raw, moduleID)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *Decoder) decodeRequirement(raw any, moduleID string) (domain.UnlockRequirement, error) {
	m, ok := asMap(raw)
	if !ok {
		return domain.UnlockRequirement{}, fmt.Errorf("requirement must be a map, got %T", raw)
	}
	kind, payload, err := single(m)
	if err != nil {
		return domain.UnlockRequirement{}, fmt.Errorf("requirement: %w", err)
	}

	switch kind {
	case "all", "any":
		items, ok := asList(payload)
		if payload != nil && !ok {
			return domain.UnlockRequirement{}, fmt.Errorf("%s: expected a list, got %T", kind, payload)
		}
		terms := make([]domain.UnlockRequirement, 0, len(items))
		for i, item := range items {
			t, err := d.decodeRequirement(item, moduleID)
			if err != nil {
				return domain.UnlockRequirement{}, fmt.Errorf("%s[%d]: %w", kind, i, err)
			}
			terms = append(terms, t)
		}
		if kind == "all" {
			return domain.RequireAll(terms...), nil
		}
		return domain.RequireAny(terms...), nil
	case "password":
		pw, ok := payload.(string)
		if !ok {
			return domain.UnlockRequirement{}, fmt.Errorf("password must be a string")
		}
		return domain.RequirePasswordOf(pw), nil
	case "module":
		id, ok := payload.(string)
		if !ok || id == "" {
			return domain.UnlockRequirement{}, fmt.Errorf("module requirement needs a module id")
		}
		return domain.RequireModule(id), nil
	case "task":
		if s, ok := payload.(string); ok {
			module, task, found := strings.Cut(s, "/")
			if !found {
				module, task = moduleID, s
			}
			return domain.RequireTask(module, task), nil
		}
		ref, err := decodeTaskRef(payload)
		if err != nil {
			return domain.UnlockRequirement{}, fmt.Errorf("task: %w", err)
		}
		if ref.Module == "" {
			ref.Module = moduleID
		}
		return domain.RequireTask(ref.Module, ref.Task), nil
	case "custom":
		name, ok := payload.(string)
		if !ok || name == "" {
			return domain.UnlockRequirement{}, fmt.Errorf("custom requirement needs a predicate name")
		}
		return domain.RequirePredicate(name, d.predicate(name)), nil
	default:
		return domain.UnlockRequirement{}, fmt.Errorf("unknown requirement %q", kind)
	}
}
