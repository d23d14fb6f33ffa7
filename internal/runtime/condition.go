package runtime

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/logic"
)

// Evaluate evaluates a condition tree against the player context.
// Predicate errors abort the evaluation and are returned to the caller.
func Evaluate(dc *domain.Context, cond domain.Condition) (bool, error) {
	return logic.Eval(cond, func(leaf domain.ConditionLeaf) (bool, error) {
		return EvaluateLeaf(dc, leaf)
	})
}

// EvaluateLeaf evaluates a single condition leaf.
func EvaluateLeaf(dc *domain.Context, leaf domain.ConditionLeaf) (bool, error) {
	switch leaf.Kind {
	case domain.ConditionTaskComplete:
		return dc.ModuleOf(leaf.Module).IsTaskComplete(leaf.TaskID), nil
	case domain.ConditionTaskActive:
		return dc.ModuleOf(leaf.Module).CurrentTaskID == leaf.TaskID, nil
	case domain.ConditionState:
		var (
			v  any
			ok bool
		)
		if dc != nil && dc.InteractableID != "" {
			v, ok = dc.Module().InteractableValue(dc.InteractableID, leaf.Key)
		} else {
			v, ok = dc.Module().ModuleValue(leaf.Key)
		}
		return ok && StrictEqual(v, leaf.Value), nil
	case domain.ConditionModuleState:
		v, ok := dc.ModuleOf(leaf.Module).ModuleValue(leaf.Key)
		return ok && StrictEqual(v, leaf.Value), nil
	case domain.ConditionInteractableState:
		v, ok := dc.ModuleOf(leaf.Module).InteractableValue(leaf.Interactable, leaf.Key)
		return ok && StrictEqual(v, leaf.Value), nil
	case domain.ConditionCustom:
		if leaf.Predicate == nil {
			return false, fmt.Errorf("custom condition %q has no predicate", leaf.Name)
		}
		return leaf.Predicate(dc)
	default:
		return false, fmt.Errorf("unknown condition kind: %q", leaf.Kind)
	}
}

// EvalCondition evaluates a condition, logging and treating any error as false.
func (e *Engine) EvalCondition(dc *domain.Context, cond domain.Condition) bool {
	ok, err := Evaluate(dc, cond)
	if err != nil {
		e.logger.Warn("condition evaluation failed", "module", moduleID(dc), "err", err)
		return false
	}
	return ok
}

// StrictEqual compares two state values without type coercion.
// Numeric kinds compare by value so that 1 from a decoder equals int 1 from code;
// values that are not comparable are never equal.
func StrictEqual(a, b any) bool {
	if fa, ok := number(a); ok {
		fb, ok := number(b)
		return ok && fa == fb
	}
	if _, ok := number(b); ok {
		return false
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func moduleID(dc *domain.Context) string {
	if dc == nil {
		return ""
	}
	return dc.ModuleID
}
