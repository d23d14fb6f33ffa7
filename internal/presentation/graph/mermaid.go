package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/lessonweave/internal/runtime"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/logic"
)

const closeID = "close_dialogue"

// GraphOverlay contains session data to highlight on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a dialogue tree.
// It applies semantic styling:
// - Entry node: ((Circle))
// - Node with choices: [/Parallelogram/]
// - Synthesized task screen: {{Hexagon}}
// - Default: [Rectangle]
// Conditional choices are drawn dotted; every close leads to a shared end node.
func GenerateMermaid(tree *domain.DialogueTree, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := entryNode(tree)
	closes := false

	for _, node := range tree.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := "[", "]"
		switch {
		case node.ID == entry:
			opener, closer = "((", "))"
		case len(node.Choices) > 0:
			opener, closer = "[/", "/]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, label(node), closer)

		for _, c := range node.Choices {
			edge, ok := tree.Edge(node.ID, c.Key)
			if !ok {
				closes = true
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escape(c.Key), closeID)
				continue
			}
			to := closeID
			if edge.Next.NodeID != "" {
				to = sanitizeMermaidID(edge.Next.NodeID)
			} else {
				closes = true
			}
			if edge.Condition != nil {
				fmt.Fprintf(&sb, "    %s -. \"%s ?\" .-> %s\n", safeID, escape(c.Key), to)
			} else {
				fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", safeID, escape(c.Key), to)
			}
		}

		if def, ok := tree.Definition(node.ID); ok && def.Next.IsSet() && !def.Next.IsComputed() {
			if next := def.Next.Resolve(nil); next.NodeID != "" {
				fmt.Fprintf(&sb, "    %s --> %s\n", safeID, sanitizeMermaidID(next.NodeID))
			}
		}
	}

	if tree.TaskID != "" {
		ready := runtime.TaskReadyNodeID(tree.TaskID)
		done := runtime.TaskCompleteNodeID(tree.TaskID)
		fmt.Fprintf(&sb, "    %s{{\"%s\"}}\n", sanitizeMermaidID(ready), ready)
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(ready), runtime.ChoiceBegin, closeID)
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(ready), runtime.ChoiceLater, closeID)
		fmt.Fprintf(&sb, "    %s{{\"%s\"}}\n", sanitizeMermaidID(done), done)
		fmt.Fprintf(&sb, "    %s -- \"%s\" --> %s\n", sanitizeMermaidID(done), runtime.ChoiceDone, closeID)
		closes = true
	}
	if closes {
		fmt.Fprintf(&sb, "    %s((\"end\"))\n", closeID)
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !visited[safeID] {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

// GenerateCatalog draws modules and the unlock dependencies between them.
func GenerateCatalog(modules []*domain.Module) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")
	for _, m := range modules {
		fmt.Fprintf(&sb, "    %s[\"%s\"]\n", sanitizeMermaidID(m.ID()), escape(m.Manifest.Title))
	}
	for _, m := range modules {
		for _, dep := range dependencies(m) {
			fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(dep), sanitizeMermaidID(m.ID()))
		}
	}
	return sb.String()
}

func dependencies(m *domain.Module) []string {
	if m.Requirement == nil {
		return nil
	}
	var deps []string
	logic.Walk(*m.Requirement, func(leaf domain.RequirementLeaf) {
		dep := leaf.Module
		if dep == "" || dep == m.ID() || slices.Contains(deps, dep) {
			return
		}
		deps = append(deps, dep)
	})
	return deps
}

func entryNode(tree *domain.DialogueTree) string {
	switch {
	case tree.Entry.Config != nil:
		return tree.Entry.Config.Default
	case tree.Entry.NodeID != "":
		return tree.Entry.NodeID
	case len(tree.Nodes) > 0:
		return tree.Nodes[0].ID
	default:
		return ""
	}
}

func label(n domain.DialogueNode) string {
	if len(n.Lines) == 0 {
		return n.ID
	}
	first := n.Lines[0]
	if r := []rune(first); len(r) > 32 {
		first = string(r[:32]) + "…"
	}
	return fmt.Sprintf("%s <br/> %s", n.ID, escape(first))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	return strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_", ":", "_").Replace(id)
}
