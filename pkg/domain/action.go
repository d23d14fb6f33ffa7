package domain

import "context"

// ActionKind tags a ChoiceAction.
type ActionKind string

const (
	ActionAcceptTask    ActionKind = "accept_task"
	ActionSetState      ActionKind = "set_state"
	ActionCallFunction  ActionKind = "call_function"
	ActionGoTo          ActionKind = "go_to"
	ActionCloseDialogue ActionKind = "close_dialogue"
	ActionNone          ActionKind = "none"
)

// StateScope selects the state partition written by set-state.
type StateScope string

const (
	ScopeModule       StateScope = "module"
	ScopeInteractable StateScope = "interactable"
)

// HandlerFunc is an external effect invoked by a call-function action.
// It blocks until done; the pipeline waits for it before running the next action.
type HandlerFunc func(ctx context.Context, dc *Context, args map[string]any) error

// ChoiceAction is an effect attached to a choice.
type ChoiceAction struct {
	Kind ActionKind `json:"kind"`

	// accept_task
	TaskID string `json:"task_id,omitempty"`

	// set_state; an empty Interactable with ScopeInteractable means the context interactable.
	Scope        StateScope `json:"scope,omitempty"`
	Module       string     `json:"module,omitempty"`
	Interactable string     `json:"interactable,omitempty"`
	Key          string     `json:"key,omitempty"`
	Value        any        `json:"value,omitempty"`

	// call_function; Func wins over a registry lookup by Handler.
	Handler string         `json:"handler,omitempty"`
	Args    map[string]any `json:"args,omitempty"`
	Func    HandlerFunc    `json:"-"`

	// go_to
	NodeID string `json:"node_id,omitempty"`
}

// AcceptTask makes the task the module's current task.
func AcceptTask(taskID string) ChoiceAction {
	return ChoiceAction{Kind: ActionAcceptTask, TaskID: taskID}
}

// SetModuleState writes a module-scoped state field of the context module.
func SetModuleState(key string, value any) ChoiceAction {
	return ChoiceAction{Kind: ActionSetState, Scope: ScopeModule, Key: key, Value: value}
}

// SetInteractableState writes an interactable-scoped field. An empty id means the
// context interactable.
func SetInteractableState(interactableID, key string, value any) ChoiceAction {
	return ChoiceAction{Kind: ActionSetState, Scope: ScopeInteractable, Interactable: interactableID, Key: key, Value: value}
}

// CallFunction invokes a registered handler by name.
func CallFunction(handler string, args map[string]any) ChoiceAction {
	return ChoiceAction{Kind: ActionCallFunction, Handler: handler, Args: args}
}

// CallFunc invokes fn directly.
func CallFunc(name string, fn HandlerFunc) ChoiceAction {
	return ChoiceAction{Kind: ActionCallFunction, Handler: name, Func: fn}
}

// GoTo signals navigation to a node.
func GoTo(nodeID string) ChoiceAction {
	return ChoiceAction{Kind: ActionGoTo, NodeID: nodeID}
}

// Close signals the end of the conversation.
func Close() ChoiceAction {
	return ChoiceAction{Kind: ActionCloseDialogue}
}

// NoAction does nothing.
func NoAction() ChoiceAction {
	return ChoiceAction{Kind: ActionNone}
}
