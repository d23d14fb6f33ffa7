package domain

import (
	"cmp"
	"strings"
)

// Manifest describes a module for listings.
type Manifest struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Order       int      `json:"order,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// Interactable is an object inside a module, optionally gated and optionally talking.
type Interactable struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Dialogue    string             `json:"dialogue,omitempty"`
	Requirement *UnlockRequirement `json:"-"`
}

// Module is the authored content of one learning unit.
type Module struct {
	Manifest      Manifest
	Background    string
	Welcome       string
	Requirement   *UnlockRequirement
	Tasks         []Task
	Interactables []Interactable
	Dialogues     map[string]*DialogueTree
}

// ID is the module id.
func (m *Module) ID() string {
	return m.Manifest.ID
}

// Task finds a task by id.
func (m *Module) Task(taskID string) (*Task, bool) {
	for i := range m.Tasks {
		if m.Tasks[i].ID == taskID {
			return &m.Tasks[i], true
		}
	}
	return nil, false
}

// Interactable finds an interactable by id.
func (m *Module) Interactable(id string) (*Interactable, bool) {
	for i := range m.Interactables {
		if m.Interactables[i].ID == id {
			return &m.Interactables[i], true
		}
	}
	return nil, false
}

// Dialogue finds a dialogue tree by id.
func (m *Module) Dialogue(treeID string) (*DialogueTree, bool) {
	if m.Dialogues == nil {
		return nil, false
	}
	t, ok := m.Dialogues[treeID]
	return t, ok && t != nil
}

// Subject returns the module as an unlock subject.
func (m *Module) Subject() Subject {
	return Subject{ModuleID: m.ID(), Requirement: m.Requirement}
}

// InteractableSubject returns an interactable as an unlock subject.
func (m *Module) InteractableSubject(it *Interactable) Subject {
	return Subject{ModuleID: m.ID(), InteractableID: it.ID, Requirement: it.Requirement}
}

// TaskIDs lists task ids in authored order.
func (m *Module) TaskIDs() []string {
	ids := make([]string, 0, len(m.Tasks))
	for _, t := range m.Tasks {
		ids = append(ids, t.ID)
	}
	return ids
}

// CompareManifests orders manifests by Order, then by id.
func CompareManifests(a, b Manifest) int {
	if a.Order != b.Order {
		return cmp.Compare(a.Order, b.Order)
	}
	return strings.Compare(a.ID, b.ID)
}
