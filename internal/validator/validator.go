// Package validator checks authored modules for broken references before they are served.
package validator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/lessonweave/internal/runtime"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/logic"
)

// ValidateModule checks a module for duplicate ids, edges leaving unknown nodes,
// dangling targets, broken entry references and duplicate edges.
func ValidateModule(m *domain.Module) error {
	var errs []string
	report := func(format string, args ...any) {
		errs = append(errs, fmt.Sprintf(format, args...))
	}

	tasks := make(map[string]bool, len(m.Tasks))
	for _, t := range m.Tasks {
		if tasks[t.ID] {
			report("duplicate task '%s'", t.ID)
		}
		tasks[t.ID] = true
	}

	interactables := make(map[string]bool, len(m.Interactables))
	for _, it := range m.Interactables {
		if interactables[it.ID] {
			report("duplicate interactable '%s'", it.ID)
		}
		interactables[it.ID] = true
		if it.Dialogue != "" {
			if _, ok := m.Dialogue(it.Dialogue); !ok {
				report("interactable '%s' uses missing dialogue '%s'", it.ID, it.Dialogue)
			}
		}
	}

	for _, id := range sortedKeys(m.Dialogues) {
		tree := m.Dialogues[id]
		if tree.TaskID != "" && !tasks[tree.TaskID] {
			report("dialogue '%s' is bound to missing task '%s'", id, tree.TaskID)
		}
		for _, msg := range validateTree(tree) {
			report("dialogue '%s': %s", id, msg)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("module '%s': found %d errors:\n- %s", m.ID(), len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

// ValidateCatalog validates every module and checks that unlock requirements
// only reference modules and tasks of the catalog.
func ValidateCatalog(modules []*domain.Module) error {
	var errs []string
	byID := make(map[string]*domain.Module, len(modules))
	for _, m := range modules {
		if _, dup := byID[m.ID()]; dup {
			errs = append(errs, fmt.Sprintf("duplicate module '%s'", m.ID()))
		}
		byID[m.ID()] = m
	}

	checkRequirement := func(owner string, req *domain.UnlockRequirement) {
		if req == nil {
			return
		}
		logic.Walk(*req, func(leaf domain.RequirementLeaf) {
			switch leaf.Kind {
			case domain.RequireModuleComplete:
				if _, ok := byID[leaf.Module]; !ok {
					errs = append(errs, fmt.Sprintf("%s requires missing module '%s'", owner, leaf.Module))
				}
			case domain.RequireTaskComplete:
				target := leaf.Module
				if target == "" {
					target = strings.SplitN(owner, "/", 2)[0]
				}
				dep, ok := byID[target]
				if !ok {
					errs = append(errs, fmt.Sprintf("%s requires task of missing module '%s'", owner, target))
					return
				}
				if _, ok := dep.Task(leaf.TaskID); !ok {
					errs = append(errs, fmt.Sprintf("%s requires missing task '%s/%s'", owner, target, leaf.TaskID))
				}
			}
		})
	}

	for _, m := range modules {
		if err := ValidateModule(m); err != nil {
			errs = append(errs, err.Error())
		}
		checkRequirement(m.ID(), m.Requirement)
		for _, it := range m.Interactables {
			checkRequirement(domain.SubjectKey(m.ID(), it.ID), it.Requirement)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

func validateTree(tree *domain.DialogueTree) []string {
	var errs []string
	known := func(id string) bool {
		if _, ok := tree.Node(id); ok {
			return true
		}
		return tree.TaskID != "" && (id == runtime.TaskReadyNodeID(tree.TaskID) || id == runtime.TaskCompleteNodeID(tree.TaskID))
	}

	seen := make(map[string]bool, len(tree.Nodes))
	for _, n := range tree.Nodes {
		if seen[n.ID] {
			errs = append(errs, fmt.Sprintf("duplicate node '%s'", n.ID))
		}
		seen[n.ID] = true
	}

	edges := make(map[string]bool, len(tree.Edges))
	for _, e := range tree.Edges {
		key := e.From + "\x00" + e.ChoiceKey
		if edges[key] {
			errs = append(errs, fmt.Sprintf("duplicate edge '%s' -[%s]->", e.From, e.ChoiceKey))
		}
		edges[key] = true
		if _, ok := tree.Node(e.From); !ok {
			errs = append(errs, fmt.Sprintf("edge '%s' leaves missing node '%s'", e.ChoiceKey, e.From))
		}
		if e.Next.NodeID != "" && !known(e.Next.NodeID) {
			errs = append(errs, fmt.Sprintf("edge '%s' -[%s]-> points to missing node '%s'", e.From, e.ChoiceKey, e.Next.NodeID))
		}
	}

	for _, id := range sortedKeys(tree.Definitions) {
		def := tree.Definitions[id]
		if def.Next.IsSet() && !def.Next.IsComputed() {
			if next := def.Next.Resolve(nil); next.NodeID != "" && !known(next.NodeID) {
				errs = append(errs, fmt.Sprintf("node '%s' advances to missing node '%s'", id, next.NodeID))
			}
		}
	}

	if id := tree.Entry.NodeID; id != "" && !known(id) {
		errs = append(errs, fmt.Sprintf("entry points to missing node '%s'", id))
	}
	if cfg := tree.Entry.Config; cfg != nil {
		if cfg.Default == "" {
			errs = append(errs, "entry config has no default")
		} else if !known(cfg.Default) {
			errs = append(errs, fmt.Sprintf("entry default points to missing node '%s'", cfg.Default))
		}
		for i, c := range cfg.Cases {
			if !known(c.NodeID) {
				errs = append(errs, fmt.Sprintf("entry case %d points to missing node '%s'", i, c.NodeID))
			}
		}
	}
	return errs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
