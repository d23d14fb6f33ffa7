package runtime

import (
	"github.com/aretw0/lessonweave/pkg/domain"
)

type edgeKey struct {
	from   string
	choice string
}

type treeOverlay struct {
	nodes map[string]*domain.DialogueNode
	edges map[edgeKey]*domain.DialogueEdge
}

// Overlay holds nodes and edges synthesized for one session. Authored trees are
// never mutated; lookups consult the overlay before the tree.
// An Overlay is not safe for concurrent use.
type Overlay struct {
	trees map[string]*treeOverlay
}

// NewOverlay creates an empty overlay.
func NewOverlay() *Overlay {
	return &Overlay{trees: make(map[string]*treeOverlay)}
}

// Merge adds a synthesized node and its edges to the overlay for the tree.
// A node or edge already present in the tree or the overlay is skipped.
// It reports whether anything was added.
func (o *Overlay) Merge(tree *domain.DialogueTree, node domain.DialogueNode, edges []domain.DialogueEdge) bool {
	if o == nil {
		return false
	}
	to, ok := o.trees[tree.ID]
	if !ok {
		to = &treeOverlay{
			nodes: make(map[string]*domain.DialogueNode),
			edges: make(map[edgeKey]*domain.DialogueEdge),
		}
		o.trees[tree.ID] = to
	}

	added := false
	if _, authored := tree.Node(node.ID); !authored {
		if _, exists := to.nodes[node.ID]; !exists {
			n := node
			to.nodes[node.ID] = &n
			added = true
		}
	}
	for _, edge := range edges {
		if _, authored := tree.Edge(edge.From, edge.ChoiceKey); authored {
			continue
		}
		k := edgeKey{from: edge.From, choice: edge.ChoiceKey}
		if _, exists := to.edges[k]; exists {
			continue
		}
		ed := edge
		to.edges[k] = &ed
		added = true
	}
	return added
}

// Node returns a synthesized node.
func (o *Overlay) Node(treeID, nodeID string) (*domain.DialogueNode, bool) {
	if o == nil {
		return nil, false
	}
	to, ok := o.trees[treeID]
	if !ok {
		return nil, false
	}
	n, ok := to.nodes[nodeID]
	return n, ok
}

// Edge returns a synthesized edge.
func (o *Overlay) Edge(treeID, from, choiceKey string) (*domain.DialogueEdge, bool) {
	if o == nil {
		return nil, false
	}
	to, ok := o.trees[treeID]
	if !ok {
		return nil, false
	}
	e, ok := to.edges[edgeKey{from: from, choice: choiceKey}]
	return e, ok
}

// Size returns the number of synthesized nodes and edges held for a tree.
func (o *Overlay) Size(treeID string) (nodes, edges int) {
	if o == nil {
		return 0, 0
	}
	to, ok := o.trees[treeID]
	if !ok {
		return 0, 0
	}
	return len(to.nodes), len(to.edges)
}
