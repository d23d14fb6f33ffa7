package runtime

import (
	"github.com/aretw0/lessonweave/pkg/domain"
)

// InitialNode selects the node a dialogue opens on.
//
// A tree bound to a task opens on its task screen while the task is active or
// complete. Otherwise the first matching entry case wins, then the entry default,
// then the tree's first node. The result is resolved for this visit; nil means the
// tree has nothing to show.
func (e *Engine) InitialNode(tree *domain.DialogueTree, overlay *Overlay, dc *domain.Context) *domain.DialogueNode {
	if tree == nil {
		return nil
	}
	if id, ok := e.taskScreen(tree, dc); ok {
		if node, found := e.Lookup(tree, overlay, id, dc); found {
			return e.ResolveNode(tree, node, dc)
		}
	}

	if cfg := tree.Entry.Config; cfg != nil {
		for _, c := range cfg.Cases {
			if !e.EvalCondition(dc, c.Condition) {
				continue
			}
			if node, ok := e.Lookup(tree, overlay, c.NodeID, dc); ok {
				return e.ResolveNode(tree, node, dc)
			}
			e.logger.Warn("entry case points to unknown node", "tree", tree.ID, "node", c.NodeID)
		}
		if cfg.Default != "" {
			if node, ok := e.Lookup(tree, overlay, cfg.Default, dc); ok {
				return e.ResolveNode(tree, node, dc)
			}
			e.logger.Warn("entry default points to unknown node", "tree", tree.ID, "node", cfg.Default)
		}
	} else if tree.Entry.NodeID != "" {
		if node, ok := e.Lookup(tree, overlay, tree.Entry.NodeID, dc); ok {
			return e.ResolveNode(tree, node, dc)
		}
		e.logger.Warn("entry points to unknown node", "tree", tree.ID, "node", tree.Entry.NodeID)
	}

	if len(tree.Nodes) == 0 {
		return nil
	}
	return e.ResolveNode(tree, &tree.Nodes[0], dc)
}

// NextNode returns the node reached by choosing key on node, or nil when the
// dialogue closes. An empty key auto-advances through the node definition.
func (e *Engine) NextNode(tree *domain.DialogueTree, overlay *Overlay, node *domain.DialogueNode, key string, dc *domain.Context) *domain.DialogueNode {
	if tree == nil || node == nil {
		return nil
	}
	if key == "" {
		def, ok := tree.Definition(node.ID)
		if !ok || !def.Next.IsSet() {
			return nil
		}
		return e.follow(tree, overlay, Resolve(def.Next, dc), dc)
	}

	edge, ok := e.edge(tree, overlay, node.ID, key)
	if !ok {
		e.logger.Debug("no edge for choice, closing", "tree", tree.ID, "node", node.ID, "choice", key)
		return nil
	}
	cd, hasDef := e.choiceDefinition(tree, node.ID, key, dc)
	if cond := effectiveCondition(cd, hasDef, edge, dc); cond != nil && !e.EvalCondition(dc, *cond) {
		e.logger.Debug("choice condition no longer holds, closing", "tree", tree.ID, "node", node.ID, "choice", key)
		return nil
	}

	target := edge.Next
	if hasDef && cd.Next.IsSet() {
		target = Resolve(cd.Next, dc)
	}
	return e.follow(tree, overlay, target, dc)
}

// Lookup finds a node by id in the overlay, then the tree, then by synthesizing
// the tree's task screen with that id.
func (e *Engine) Lookup(tree *domain.DialogueTree, overlay *Overlay, nodeID string, dc *domain.Context) (*domain.DialogueNode, bool) {
	if n, ok := overlay.Node(tree.ID, nodeID); ok {
		return n, true
	}
	if n, ok := tree.Node(nodeID); ok {
		return n, true
	}
	node, edges, ok := e.synthesize(tree, nodeID, dc)
	if !ok {
		return nil, false
	}
	if overlay == nil {
		return &node, true
	}
	overlay.Merge(tree, node, edges)
	return overlay.Node(tree.ID, nodeID)
}

func (e *Engine) follow(tree *domain.DialogueTree, overlay *Overlay, target domain.Target, dc *domain.Context) *domain.DialogueNode {
	switch {
	case target.IsClose():
		return nil
	case target.Node != nil:
		return e.ResolveNode(tree, target.Node, dc)
	default:
		node, ok := e.Lookup(tree, overlay, target.NodeID, dc)
		if !ok {
			e.logger.Warn("target node not found, closing", "tree", tree.ID, "node", target.NodeID)
			return nil
		}
		return e.ResolveNode(tree, node, dc)
	}
}

func (e *Engine) edge(tree *domain.DialogueTree, overlay *Overlay, from, key string) (*domain.DialogueEdge, bool) {
	if ed, ok := overlay.Edge(tree.ID, from, key); ok {
		return ed, true
	}
	if ed, ok := tree.Edge(from, key); ok {
		return ed, true
	}
	// The synthesized task screens carry their own edges.
	if _, edges, ok := e.synthesize(tree, from, nil); ok {
		for i := range edges {
			if edges[i].ChoiceKey == key {
				return &edges[i], true
			}
		}
	}
	return nil, false
}

func (e *Engine) choiceDefinition(tree *domain.DialogueTree, nodeID, key string, dc *domain.Context) (domain.ChoiceDefinition, bool) {
	def, ok := tree.Definition(nodeID)
	if !ok || !def.Choices.IsSet() {
		return domain.ChoiceDefinition{}, false
	}
	for _, cd := range Resolve(def.Choices, dc) {
		if cd.Key == key {
			return cd, true
		}
	}
	return domain.ChoiceDefinition{}, false
}

// effectiveCondition prefers the inline definition's condition over the edge's.
func effectiveCondition(cd domain.ChoiceDefinition, hasDef bool, edge *domain.DialogueEdge, dc *domain.Context) *domain.Condition {
	if hasDef && cd.Condition.IsSet() {
		return Resolve(cd.Condition, dc)
	}
	if edge != nil {
		return edge.Condition
	}
	return nil
}
