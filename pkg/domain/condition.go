package domain

import "github.com/aretw0/lessonweave/pkg/logic"

// ConditionKind tags a condition leaf.
type ConditionKind string

const (
	ConditionTaskComplete      ConditionKind = "task_complete"
	ConditionTaskActive        ConditionKind = "task_active"
	ConditionState             ConditionKind = "state"
	ConditionModuleState       ConditionKind = "module_state"
	ConditionInteractableState ConditionKind = "interactable_state"
	ConditionCustom            ConditionKind = "custom"
)

// Predicate is an opaque, authored test over the visit Context.
type Predicate func(ctx *Context) (bool, error)

// ConditionLeaf is a single test against game state.
type ConditionLeaf struct {
	Kind ConditionKind `json:"kind"`

	// Module targets another module's progress. Empty means the context module.
	Module       string `json:"module,omitempty"`
	TaskID       string `json:"task_id,omitempty"`
	Interactable string `json:"interactable,omitempty"`
	Key          string `json:"key,omitempty"`
	Value        any    `json:"value,omitempty"`

	// Name labels a custom predicate (also its registry key when loaded from content).
	Name      string    `json:"name,omitempty"`
	Predicate Predicate `json:"-"`
}

// Condition is a predicate tree over ConditionLeaf.
type Condition = logic.Expr[ConditionLeaf]

// TaskComplete is true when the task is in the module's completed set.
func TaskComplete(taskID string) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionTaskComplete, TaskID: taskID})
}

// TaskCompleteIn is TaskComplete against another module.
func TaskCompleteIn(moduleID, taskID string) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionTaskComplete, Module: moduleID, TaskID: taskID})
}

// TaskActive is true when the task is the module's current task.
func TaskActive(taskID string) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionTaskActive, TaskID: taskID})
}

// StateIs checks the scoped state: the interactable partition when the context has an
// interactable, the module partition otherwise.
func StateIs(key string, value any) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionState, Key: key, Value: value})
}

// ModuleStateIs checks a module-scoped state field. An empty module means the context module.
func ModuleStateIs(moduleID, key string, value any) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionModuleState, Module: moduleID, Key: key, Value: value})
}

// InteractableStateIs checks an interactable-scoped state field in the context module.
func InteractableStateIs(interactableID, key string, value any) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionInteractableState, Interactable: interactableID, Key: key, Value: value})
}

// Custom wraps an authored predicate.
func Custom(name string, fn Predicate) Condition {
	return logic.Leaf(ConditionLeaf{Kind: ConditionCustom, Name: name, Predicate: fn})
}

// AllOf is the conjunction of conditions; AllOf() is true.
func AllOf(conds ...Condition) Condition {
	return logic.All(conds...)
}

// AnyOf is the disjunction of conditions; AnyOf() is false.
func AnyOf(conds ...Condition) Condition {
	return logic.Any(conds...)
}

// When returns a pointer for optional condition slots.
func When(c Condition) *Condition {
	return &c
}
