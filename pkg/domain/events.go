package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeEnter       EventType = "node_enter"
	EventChoice          EventType = "choice"
	EventActionError     EventType = "action_error"
	EventTaskValidated   EventType = "task_validated"
	EventTaskCompleted   EventType = "task_completed"
	EventModuleCompleted EventType = "module_completed"
	EventUnlock          EventType = "unlock"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	ProfileID string    `json:"profile_id,omitempty"`
	ModuleID  string    `json:"module_id"`
}

// DialogueEvent reports a node being shown or a choice being taken.
type DialogueEvent struct {
	EventBase
	TreeID    string `json:"tree_id"`
	NodeID    string `json:"node_id"`
	ChoiceKey string `json:"choice_key,omitempty"`
	Err       error  `json:"-"`
}

// TaskEvent reports a validation or a completion.
type TaskEvent struct {
	EventBase
	TaskID string `json:"task_id"`
	Result Result `json:"result"`
}

// ProgressionEvent reports a subject changing progression state.
type ProgressionEvent struct {
	EventBase
	SubjectKey string           `json:"subject"`
	State      ProgressionState `json:"state"`
}

// LifecycleHooks defines callbacks for engine observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnNodeEnter       func(context.Context, *DialogueEvent)
	OnChoice          func(context.Context, *DialogueEvent)
	OnActionError     func(context.Context, *DialogueEvent)
	OnTaskValidated   func(context.Context, *TaskEvent)
	OnTaskCompleted   func(context.Context, *TaskEvent)
	OnModuleCompleted func(context.Context, *ProgressionEvent)
	OnUnlock          func(context.Context, *ProgressionEvent)
}

// Merge combines hook sets; both are called in order.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnNodeEnter:       chain(h.OnNodeEnter, other.OnNodeEnter),
		OnChoice:          chain(h.OnChoice, other.OnChoice),
		OnActionError:     chain(h.OnActionError, other.OnActionError),
		OnTaskValidated:   chain(h.OnTaskValidated, other.OnTaskValidated),
		OnTaskCompleted:   chain(h.OnTaskCompleted, other.OnTaskCompleted),
		OnModuleCompleted: chain(h.OnModuleCompleted, other.OnModuleCompleted),
		OnUnlock:          chain(h.OnUnlock, other.OnUnlock),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
