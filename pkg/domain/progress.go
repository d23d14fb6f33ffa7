package domain

import (
	"slices"
	"sort"
	"time"
)

// ProgressionState is the access state of a module or interactable.
// It only advances locked -> unlocked -> completed, except on explicit reset.
type ProgressionState string

const (
	StateLocked    ProgressionState = "locked"
	StateUnlocked  ProgressionState = "unlocked"
	StateCompleted ProgressionState = "completed"
)

func (s ProgressionState) rank() int {
	switch s {
	case StateUnlocked:
		return 1
	case StateCompleted:
		return 2
	default:
		return 0
	}
}

// ModuleProgress is the persisted per-module blob.
type ModuleProgress struct {
	ModuleID       string                    `json:"module_id"`
	CompletedTasks []string                  `json:"completed_tasks"`
	CurrentTaskID  string                    `json:"current_task_id,omitempty"`
	State          map[string]any            `json:"state,omitempty"`
	Interactables  map[string]map[string]any `json:"interactables,omitempty"`
	EnteredAt      time.Time                 `json:"entered_at"`
}

// NewModuleProgress creates the blob written on first module entry.
func NewModuleProgress(moduleID string) *ModuleProgress {
	return &ModuleProgress{
		ModuleID:       moduleID,
		CompletedTasks: []string{},
		State:          make(map[string]any),
		Interactables:  make(map[string]map[string]any),
		EnteredAt:      time.Now().UTC(),
	}
}

// IsTaskComplete reports membership in the completed-task set.
func (m *ModuleProgress) IsTaskComplete(taskID string) bool {
	return slices.Contains(m.CompletedTasks, taskID)
}

// CompleteTask adds the task to the completed set and clears it as current.
// It reports whether the set changed.
func (m *ModuleProgress) CompleteTask(taskID string) bool {
	if m.CurrentTaskID == taskID {
		m.CurrentTaskID = ""
	}
	if m.IsTaskComplete(taskID) {
		return false
	}
	m.CompletedTasks = append(m.CompletedTasks, taskID)
	return true
}

// ModuleValue reads a module-scoped state field.
func (m *ModuleProgress) ModuleValue(key string) (any, bool) {
	if m.State == nil {
		return nil, false
	}
	v, ok := m.State[key]
	return v, ok
}

// InteractableValue reads an interactable-scoped state field.
func (m *ModuleProgress) InteractableValue(interactableID, key string) (any, bool) {
	if m.Interactables == nil {
		return nil, false
	}
	part, ok := m.Interactables[interactableID]
	if !ok {
		return nil, false
	}
	v, ok := part[key]
	return v, ok
}

// SetModuleValue writes a module-scoped state field.
func (m *ModuleProgress) SetModuleValue(key string, value any) {
	if m.State == nil {
		m.State = make(map[string]any)
	}
	m.State[key] = value
}

// SetInteractableValue writes an interactable-scoped state field.
func (m *ModuleProgress) SetInteractableValue(interactableID, key string, value any) {
	if m.Interactables == nil {
		m.Interactables = make(map[string]map[string]any)
	}
	part, ok := m.Interactables[interactableID]
	if !ok {
		part = make(map[string]any)
		m.Interactables[interactableID] = part
	}
	part[key] = value
}

// Clone returns a deep copy of the blob's containers.
func (m *ModuleProgress) Clone() *ModuleProgress {
	if m == nil {
		return nil
	}
	next := *m
	next.CompletedTasks = slices.Clone(m.CompletedTasks)
	next.State = make(map[string]any, len(m.State))
	for k, v := range m.State {
		next.State[k] = v
	}
	next.Interactables = make(map[string]map[string]any, len(m.Interactables))
	for id, part := range m.Interactables {
		cp := make(map[string]any, len(part))
		for k, v := range part {
			cp[k] = v
		}
		next.Interactables[id] = cp
	}
	return &next
}

// Progress is the persisted document of one profile: module blobs keyed by module id
// plus the progression map keyed by subject key.
type Progress struct {
	ProfileID    string                      `json:"profile_id"`
	Modules      map[string]*ModuleProgress  `json:"modules"`
	Progression  map[string]ProgressionState `json:"progression"`
	ActiveModule string                      `json:"active_module,omitempty"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}

// NewProgress creates an empty progress document.
func NewProgress(profileID string) *Progress {
	return &Progress{
		ProfileID:   profileID,
		Modules:     make(map[string]*ModuleProgress),
		Progression: make(map[string]ProgressionState),
	}
}

// Enter returns the module blob, creating it on first entry.
func (p *Progress) Enter(moduleID string) *ModuleProgress {
	if p.Modules == nil {
		p.Modules = make(map[string]*ModuleProgress)
	}
	m, ok := p.Modules[moduleID]
	if !ok || m == nil {
		m = NewModuleProgress(moduleID)
		p.Modules[moduleID] = m
	}
	return m
}

// Module returns the module blob if it exists.
func (p *Progress) Module(moduleID string) (*ModuleProgress, bool) {
	m, ok := p.Modules[moduleID]
	return m, ok && m != nil
}

// StateOf returns the progression state of a subject key. Unknown keys are locked.
func (p *Progress) StateOf(key string) ProgressionState {
	if p.Progression == nil {
		return StateLocked
	}
	if s, ok := p.Progression[key]; ok && s != "" {
		return s
	}
	return StateLocked
}

// Advance moves the subject forward to next. Regressions are ignored.
// It reports whether the state changed.
func (p *Progress) Advance(key string, next ProgressionState) bool {
	current := p.StateOf(key)
	if next.rank() <= current.rank() {
		return false
	}
	if p.Progression == nil {
		p.Progression = make(map[string]ProgressionState)
	}
	p.Progression[key] = next
	return true
}

// Relock forces a subject back to locked. Only explicit resets may call it.
func (p *Progress) Relock(key string) {
	if p.Progression == nil {
		p.Progression = make(map[string]ProgressionState)
	}
	p.Progression[key] = StateLocked
}

// Reset deletes the module blob and relocks the module.
func (p *Progress) Reset(moduleID string) {
	delete(p.Modules, moduleID)
	p.Relock(moduleID)
	if p.ActiveModule == moduleID {
		p.ActiveModule = ""
	}
}

// SubjectKeys returns the progression keys in sorted order.
func (p *Progress) SubjectKeys() []string {
	keys := make([]string, 0, len(p.Progression))
	for k := range p.Progression {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy safe for independent mutation.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	next := *p
	next.Modules = make(map[string]*ModuleProgress, len(p.Modules))
	for id, m := range p.Modules {
		next.Modules[id] = m.Clone()
	}
	next.Progression = make(map[string]ProgressionState, len(p.Progression))
	for k, v := range p.Progression {
		next.Progression[k] = v
	}
	return &next
}
