package domain

import (
	"reflect"
)

// ProgressDiff represents the changes between two progress documents.
// It is designed to be serialized to JSON for partial updates on the client.
type ProgressDiff struct {
	// ProfileID is always present to identify the target.
	ProfileID string `json:"profile_id"`

	// Progression contains only changed or added subject states.
	Progression map[string]ProgressionState `json:"progression,omitempty"`

	// Modules contains module blobs that were added or modified.
	// Deleted modules are present with a nil value.
	Modules map[string]*ModuleProgress `json:"modules,omitempty"`

	// ActiveModule is set when the active module changed.
	ActiveModule *string `json:"active_module,omitempty"`
}

// Diff calculates the difference between oldProgress and newProgress.
// If oldProgress is nil, it returns a diff representing the entire newProgress.
// It returns nil when nothing changed.
func Diff(oldProgress, newProgress *Progress) *ProgressDiff {
	if newProgress == nil {
		return nil
	}

	diff := &ProgressDiff{
		ProfileID:   newProgress.ProfileID,
		Progression: diffProgression(oldProgress, newProgress),
		Modules:     diffModules(oldProgress, newProgress),
	}

	if oldProgress == nil || oldProgress.ActiveModule != newProgress.ActiveModule {
		if oldProgress != nil || newProgress.ActiveModule != "" {
			active := newProgress.ActiveModule
			diff.ActiveModule = &active
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffProgression(old, new *Progress) map[string]ProgressionState {
	delta := make(map[string]ProgressionState)
	for k, v := range new.Progression {
		if old == nil || old.StateOf(k) != v {
			delta[k] = v
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffModules(old, new *Progress) map[string]*ModuleProgress {
	delta := make(map[string]*ModuleProgress)
	for id, m := range new.Modules {
		if old == nil {
			delta[id] = m
			continue
		}
		prev, ok := old.Modules[id]
		if !ok || !reflect.DeepEqual(prev, m) {
			delta[id] = m
		}
	}
	if old != nil {
		for id := range old.Modules {
			if _, ok := new.Modules[id]; !ok {
				delta[id] = nil
			}
		}
	}
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ProgressDiff) IsEmpty() bool {
	return len(d.Progression) == 0 &&
		len(d.Modules) == 0 &&
		d.ActiveModule == nil
}
