package domain

// Choice is a resolved, displayable option of a node.
type Choice struct {
	Key  string `json:"key" yaml:"key"`
	Text string `json:"text" yaml:"text"`
}

// DialogueNode is one screen of text plus zero or more choices.
// Authored trees hold static nodes; resolved nodes are recomputed per visit and never persisted.
type DialogueNode struct {
	ID      string   `json:"id" yaml:"id"`
	Lines   []string `json:"lines" yaml:"lines"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty"`
}

// ChoiceKeys returns the keys of the node's choices in declaration order.
func (n *DialogueNode) ChoiceKeys() []string {
	keys := make([]string, 0, len(n.Choices))
	for _, c := range n.Choices {
		keys = append(keys, c.Key)
	}
	return keys
}

// Target is where a transition leads: a node id, a concrete node, or nothing (close).
type Target struct {
	NodeID string
	Node   *DialogueNode
}

// CloseDialogue is the Target that ends the conversation.
var CloseDialogue = Target{}

// To targets a node by id.
func To(nodeID string) Target {
	return Target{NodeID: nodeID}
}

// ToNode targets a concrete node.
func ToNode(n *DialogueNode) Target {
	return Target{Node: n}
}

// IsClose reports whether the target ends the conversation.
func (t Target) IsClose() bool {
	return t.NodeID == "" && t.Node == nil
}

// ChoiceDefinition is the inline, possibly computed, form of a choice.
type ChoiceDefinition struct {
	Key       string
	Text      Field[string]
	Next      Field[Target]
	Actions   Field[[]ChoiceAction]
	Condition Field[*Condition]
}

// NodeDefinition overrides a node's content with literal-or-computed fields.
// Unset fields fall back to the static node.
type NodeDefinition struct {
	ID      string
	Lines   Field[[]string]
	Choices Field[[]ChoiceDefinition]

	// Next is followed on auto-advance (a visit without a choice key).
	Next Field[Target]
}

// DialogueEdge is a choice-keyed transition. A close Next ends the conversation.
type DialogueEdge struct {
	From      string         `json:"from"`
	ChoiceKey string         `json:"choice"`
	Next      Target         `json:"-"`
	Condition *Condition     `json:"-"`
	Actions   []ChoiceAction `json:"actions,omitempty"`
}

// EntryCase selects NodeID when Condition holds.
type EntryCase struct {
	Condition Condition
	NodeID    string
}

// EntryConfig is an ordered first-match list of cases with a mandatory default.
type EntryConfig struct {
	Cases   []EntryCase
	Default string
}

// Entry is where a conversation starts: a fixed node or an EntryConfig.
// The zero Entry means "first node of the tree".
type Entry struct {
	NodeID string
	Config *EntryConfig
}

// DialogueTree is an authored, immutable conversation graph.
type DialogueTree struct {
	ID          string
	Nodes       []DialogueNode
	Edges       []DialogueEdge
	Entry       Entry
	Definitions map[string]NodeDefinition

	// TaskID binds the tree to a task; while the task is active or complete and the author
	// did not define the matching screen, one is synthesized per session.
	TaskID string
}

// Node finds a static node by id.
func (t *DialogueTree) Node(id string) (*DialogueNode, bool) {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return &t.Nodes[i], true
		}
	}
	return nil, false
}

// Edge finds the edge leaving from for the given choice key.
func (t *DialogueTree) Edge(from, choiceKey string) (*DialogueEdge, bool) {
	for i := range t.Edges {
		if t.Edges[i].From == from && t.Edges[i].ChoiceKey == choiceKey {
			return &t.Edges[i], true
		}
	}
	return nil, false
}

// Definition returns the node definition, if any.
func (t *DialogueTree) Definition(nodeID string) (NodeDefinition, bool) {
	if t.Definitions == nil {
		return NodeDefinition{}, false
	}
	def, ok := t.Definitions[nodeID]
	return def, ok
}
