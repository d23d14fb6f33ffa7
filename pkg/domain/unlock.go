package domain

import "github.com/aretw0/lessonweave/pkg/logic"

// RequirementKind tags an unlock requirement leaf.
type RequirementKind string

const (
	RequirePassword       RequirementKind = "password"
	RequireTaskComplete   RequirementKind = "task_complete"
	RequireModuleComplete RequirementKind = "module_complete"
	RequireCustom         RequirementKind = "custom"
)

// RequirementLeaf is a single unlock predicate.
type RequirementLeaf struct {
	Kind RequirementKind `json:"kind"`

	// Password is compared to an out-of-band candidate by exact match.
	Password string `json:"-"`

	Module string `json:"module,omitempty"`
	TaskID string `json:"task_id,omitempty"`

	Name      string    `json:"name,omitempty"`
	Predicate Predicate `json:"-"`
}

// UnlockRequirement is a predicate tree gating a module or interactable.
type UnlockRequirement = logic.Expr[RequirementLeaf]

// RequirePasswordOf requires the candidate to equal password exactly.
func RequirePasswordOf(password string) UnlockRequirement {
	return logic.Leaf(RequirementLeaf{Kind: RequirePassword, Password: password})
}

// RequireTask requires a task of a module to be complete.
func RequireTask(moduleID, taskID string) UnlockRequirement {
	return logic.Leaf(RequirementLeaf{Kind: RequireTaskComplete, Module: moduleID, TaskID: taskID})
}

// RequireModule requires a module to be completed.
func RequireModule(moduleID string) UnlockRequirement {
	return logic.Leaf(RequirementLeaf{Kind: RequireModuleComplete, Module: moduleID})
}

// RequirePredicate gates on an authored predicate.
func RequirePredicate(name string, fn Predicate) UnlockRequirement {
	return logic.Leaf(RequirementLeaf{Kind: RequireCustom, Name: name, Predicate: fn})
}

// RequireAll is the conjunction of requirements.
func RequireAll(reqs ...UnlockRequirement) UnlockRequirement {
	return logic.All(reqs...)
}

// RequireAny is the disjunction of requirements.
func RequireAny(reqs ...UnlockRequirement) UnlockRequirement {
	return logic.Any(reqs...)
}

// Subject is something that can be unlocked: a module, or an interactable inside one.
type Subject struct {
	ModuleID       string
	InteractableID string
	Requirement    *UnlockRequirement
}

// Key is the subject's progression-map key.
func (s Subject) Key() string {
	return SubjectKey(s.ModuleID, s.InteractableID)
}

// IsModule reports whether the subject is a whole module.
func (s Subject) IsModule() bool {
	return s.InteractableID == ""
}

// SubjectKey builds a progression-map key.
func SubjectKey(moduleID, interactableID string) string {
	if interactableID == "" {
		return moduleID
	}
	return moduleID + "/" + interactableID
}

// UnlockCheck is the outcome of evaluating a subject's requirement.
type UnlockCheck struct {
	CanUnlock           bool `json:"can_unlock"`
	RequiresInteraction bool `json:"requires_interaction"`
}
