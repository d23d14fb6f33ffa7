package content

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/lessonweave/pkg/domain"
)

type actionSpec struct {
	AcceptTask string         `mapstructure:"accept_task"`
	SetState   map[string]any `mapstructure:"set_state"`
	Call       string         `mapstructure:"call"`
	Args       map[string]any `mapstructure:"args"`
	GoTo       string         `mapstructure:"go_to"`
	Close      bool           `mapstructure:"close"`
	None       bool           `mapstructure:"none"`
}

// DecodeActions decodes a single action or a list of actions.
func (d *Decoder) DecodeActions(raw any) ([]domain.ChoiceAction, error) {
	if raw == nil {
		return nil, nil
	}
	items, ok := asList(raw)
	if !ok {
		items = []any{raw}
	}
	out := make([]domain.ChoiceAction, 0, len(items))
	for i, item := range items {
		a, err := d.decodeAction(item)
		if err != nil {
			return nil, fmt.Errorf("action [%d]: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (d *Decoder) decodeAction(raw any) (domain.ChoiceAction, error) {
	if s, ok := raw.(string); ok {
		switch s {
		case "close", string(domain.ActionCloseDialogue):
			return domain.Close(), nil
		case string(domain.ActionNone):
			return domain.NoAction(), nil
		default:
			return domain.ChoiceAction{}, fmt.Errorf("unknown action %q", s)
		}
	}

	m, ok := asMap(raw)
	if !ok {
		return domain.ChoiceAction{}, fmt.Errorf("action must be a map or a string, got %T", raw)
	}
	var spec actionSpec
	if err := mapstructure.Decode(m, &spec); err != nil {
		return domain.ChoiceAction{}, err
	}

	switch {
	case spec.AcceptTask != "":
		return domain.AcceptTask(spec.AcceptTask), nil
	case spec.SetState != nil:
		ref, err := decodeStateRef(spec.SetState)
		if err != nil {
			return domain.ChoiceAction{}, fmt.Errorf("set_state: %w", err)
		}
		a := domain.SetModuleState(ref.Key, ref.Value)
		a.Module = ref.Module
		if ref.Interactable != "" || ref.Scope == string(domain.ScopeInteractable) {
			a.Scope = domain.ScopeInteractable
			a.Interactable = ref.Interactable
		}
		return a, nil
	case spec.Call != "":
		return domain.CallFunction(spec.Call, normalizeArgs(spec.Args)), nil
	case spec.GoTo != "":
		return domain.GoTo(spec.GoTo), nil
	case spec.Close:
		return domain.Close(), nil
	case spec.None:
		return domain.NoAction(), nil
	default:
		return domain.ChoiceAction{}, fmt.Errorf("unrecognized action %v", m)
	}
}

func normalizeArgs(args map[string]any) map[string]any {
	if args == nil {
		return nil
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = normalizeValue(v)
	}
	return out
}
