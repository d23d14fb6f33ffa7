package content

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/lessonweave/pkg/domain"
)

type taskRef struct {
	Module string `mapstructure:"module"`
	Task   string `mapstructure:"task"`
}

type stateRef struct {
	Scope        string `mapstructure:"scope"`
	Module       string `mapstructure:"module"`
	Interactable string `mapstructure:"interactable"`
	Key          string `mapstructure:"key"`
	Value        any    `mapstructure:"value"`
}

func decodeTaskRef(raw any) (taskRef, error) {
	if s, ok := raw.(string); ok {
		return taskRef{Task: s}, nil
	}
	var ref taskRef
	if err := mapstructure.Decode(raw, &ref); err != nil {
		return ref, err
	}
	if ref.Task == "" {
		return ref, fmt.Errorf("task reference needs a task id")
	}
	return ref, nil
}

func decodeStateRef(raw any) (stateRef, error) {
	var ref stateRef
	if err := mapstructure.Decode(raw, &ref); err != nil {
		return ref, err
	}
	if ref.Key == "" {
		return ref, fmt.Errorf("state reference needs a key")
	}
	ref.Value = normalizeValue(ref.Value)
	return ref, nil
}

// DecodeCondition decodes a condition map such as {task_complete: hello} or
// {all: [...]}.
func (d *Decoder) DecodeCondition(raw any) (domain.Condition, error) {
	m, ok := asMap(raw)
	if !ok {
		return domain.Condition{}, fmt.Errorf("condition must be a map, got %T", raw)
	}
	kind, payload, err := single(m)
	if err != nil {
		return domain.Condition{}, fmt.Errorf("condition: %w", err)
	}

	switch kind {
	case "all", "any":
		terms, err := d.decodeConditionList(payload)
		if err != nil {
			return domain.Condition{}, fmt.Errorf("%s: %w", kind, err)
		}
		if kind == "all" {
			return domain.AllOf(terms...), nil
		}
		return domain.AnyOf(terms...), nil
	case string(domain.ConditionTaskComplete), string(domain.ConditionTaskActive):
		ref, err := decodeTaskRef(payload)
		if err != nil {
			return domain.Condition{}, fmt.Errorf("%s: %w", kind, err)
		}
		if kind == string(domain.ConditionTaskActive) {
			c := domain.TaskActive(ref.Task)
			c.Leaf.Module = ref.Module
			return c, nil
		}
		return domain.TaskCompleteIn(ref.Module, ref.Task), nil
	case string(domain.ConditionState):
		ref, err := decodeStateRef(payload)
		if err != nil {
			return domain.Condition{}, fmt.Errorf("%s: %w", kind, err)
		}
		return domain.StateIs(ref.Key, ref.Value), nil
	case string(domain.ConditionModuleState):
		ref, err := decodeStateRef(payload)
		if err != nil {
			return domain.Condition{}, fmt.Errorf("%s: %w", kind, err)
		}
		return domain.ModuleStateIs(ref.Module, ref.Key, ref.Value), nil
	case string(domain.ConditionInteractableState):
		ref, err := decodeStateRef(payload)
		if err != nil {
			return domain.Condition{}, fmt.Errorf("%s: %w", kind, err)
		}
		c := domain.InteractableStateIs(ref.Interactable, ref.Key, ref.Value)
		c.Leaf.Module = ref.Module
		return c, nil
	case string(domain.ConditionCustom):
		name, ok := payload.(string)
		if !ok || name == "" {
			return domain.Condition{}, fmt.Errorf("custom condition needs a predicate name")
		}
		return domain.Custom(name, d.predicate(name)), nil
	default:
		return domain.Condition{}, fmt.Errorf("unknown condition %q", kind)
	}
}

func (d *Decoder) decodeConditionList(raw any) ([]domain.Condition, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := asList(raw)
	if !ok {
		return nil, fmt.Errorf("expected a list, got %T", raw)
	}
	out := make([]domain.Condition, 0, len(items))
	for i, item := range items {
		c, err := d.DecodeCondition(item)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out = append(out, c)
	}
	return out, nil
}

// predicate defers the registry lookup to evaluation time so content can load
// before hosts register their predicates.
func (d *Decoder) predicate(name string) domain.Predicate {
	return func(dc *domain.Context) (bool, error) {
		fn, ok := d.registry.Predicate(name)
		if !ok {
			return false, fmt.Errorf("predicate not registered: %s", name)
		}
		return fn(dc)
	}
}
