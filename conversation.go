package lessonweave

import (
	"context"
	"slices"
	"time"

	"github.com/aretw0/lessonweave/internal/runtime"
	"github.com/aretw0/lessonweave/pkg/domain"
)

// Conversation is an open dialogue. It remembers the node on screen and the
// synthesized task screens of this session; progress stays in the store.
type Conversation struct {
	session        *Session
	module         *domain.Module
	tree           *domain.DialogueTree
	interactableID string
	overlay        *runtime.Overlay

	node    *domain.DialogueNode
	choices []runtime.AvailableChoice
	signals runtime.Signals
}

// Node returns the resolved node on screen, or nil once closed.
func (c *Conversation) Node() *domain.DialogueNode {
	return c.node
}

// Choices returns the choices visible on the current node.
func (c *Conversation) Choices() []runtime.AvailableChoice {
	return c.choices
}

// Closed reports whether the conversation has ended.
func (c *Conversation) Closed() bool {
	return c.node == nil
}

// Signals returns the go-to and close signals raised by the last choice.
func (c *Conversation) Signals() runtime.Signals {
	return c.signals
}

// TreeID returns the id of the dialogue tree.
func (c *Conversation) TreeID() string {
	return c.tree.ID
}

// Choose takes a visible choice: its actions run in order, a failing action is
// logged and stops the remaining ones without undoing earlier effects, then the
// conversation moves to the next node.
func (c *Conversation) Choose(ctx context.Context, key string) error {
	if c.Closed() {
		return domain.Errorf(domain.CodeDialogueInvalidReference, c.meta(key), "conversation is closed")
	}
	idx := slices.IndexFunc(c.choices, func(ac runtime.AvailableChoice) bool { return ac.Key == key })
	if idx < 0 {
		return domain.Errorf(domain.CodeDialogueInvalidReference, c.meta(key), "choice %q is not available on node %s", key, c.node.ID)
	}
	choice := c.choices[idx]
	eng := c.session.engine

	if hook := eng.hooks.OnChoice; hook != nil {
		hook(ctx, c.event(domain.EventChoice, key, nil))
	}

	_, err := c.session.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		dc := c.context(p)
		sig, err := eng.runtime.ProcessActions(ctx, dc, choice.Actions...)
		c.signals = sig
		if err != nil {
			c.session.logger.Warn("choice action failed", "module", c.module.ID(), "tree", c.tree.ID, "node", c.node.ID, "choice", key, "err", err)
			if hook := eng.hooks.OnActionError; hook != nil {
				hook(ctx, c.event(domain.EventActionError, key, err))
			}
		}

		var next *domain.DialogueNode
		switch {
		case sig.Close:
		case sig.GoTo != "":
			if n, ok := eng.runtime.Lookup(c.tree, c.overlay, sig.GoTo, dc); ok {
				next = eng.runtime.ResolveNode(c.tree, n, dc)
			} else {
				c.session.logger.Warn("go_to target not found, closing", "tree", c.tree.ID, "node", sig.GoTo)
			}
		default:
			next = eng.runtime.NextNode(c.tree, c.overlay, c.node, key, dc)
		}
		c.visit(ctx, next, dc)
		return nil
	})
	return err
}

// Advance follows the current node's automatic next, closing if there is none.
func (c *Conversation) Advance(ctx context.Context) error {
	if c.Closed() {
		return nil
	}
	p, err := c.session.Progress(ctx)
	if err != nil {
		return err
	}
	dc := c.context(p)
	c.signals = runtime.Signals{}
	c.visit(ctx, c.session.engine.runtime.NextNode(c.tree, c.overlay, c.node, "", dc), dc)
	return nil
}

// Snapshot is the serializable view of a conversation shared by the HTTP and
// MCP adapters. Hosts pass Tree, Interactable and Node back to resume it.
type Snapshot struct {
	Module       string                    `json:"module" jsonschema_description:"Module the dialogue belongs to"`
	Tree         string                    `json:"tree" jsonschema_description:"Dialogue tree id"`
	Interactable string                    `json:"interactable,omitempty" jsonschema_description:"Interactable being talked to, if any"`
	Node         string                    `json:"node,omitempty" jsonschema_description:"Node on screen; empty once closed"`
	Lines        []string                  `json:"lines,omitempty" jsonschema_description:"Resolved lines of the node"`
	Choices      []runtime.AvailableChoice `json:"choices" jsonschema_description:"Choices visible right now"`
	Closed       bool                      `json:"closed" jsonschema_description:"Whether the conversation ended"`
}

// Snapshot returns the current view of the conversation.
func (c *Conversation) Snapshot() Snapshot {
	snap := Snapshot{
		Module:       c.module.ID(),
		Tree:         c.tree.ID,
		Interactable: c.interactableID,
		Choices:      make([]runtime.AvailableChoice, 0, len(c.choices)),
		Closed:       c.Closed(),
	}
	if c.node != nil {
		snap.Node = c.node.ID
		snap.Lines = c.node.Lines
	}
	for _, ch := range c.choices {
		snap.Choices = append(snap.Choices, runtime.AvailableChoice{Key: ch.Key, Text: ch.Text})
	}
	return snap
}

// Close ends the conversation.
func (c *Conversation) Close() {
	c.node = nil
	c.choices = nil
}

func (c *Conversation) visit(ctx context.Context, node *domain.DialogueNode, dc *domain.Context) {
	c.node = node
	if node == nil {
		c.choices = nil
		return
	}
	c.choices = c.session.engine.runtime.AvailableChoices(c.tree, c.overlay, node, dc)
	if hook := c.session.engine.hooks.OnNodeEnter; hook != nil {
		hook(ctx, c.event(domain.EventNodeEnter, "", nil))
	}
}

func (c *Conversation) context(p *domain.Progress) *domain.Context {
	return &domain.Context{
		ModuleID:       c.module.ID(),
		InteractableID: c.interactableID,
		Progress:       p,
	}
}

func (c *Conversation) event(t domain.EventType, key string, err error) *domain.DialogueEvent {
	nodeID := ""
	if c.node != nil {
		nodeID = c.node.ID
	}
	return &domain.DialogueEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: t, ProfileID: c.session.profileID, ModuleID: c.module.ID()},
		TreeID:    c.tree.ID,
		NodeID:    nodeID,
		ChoiceKey: key,
		Err:       err,
	}
}

func (c *Conversation) meta(key string) map[string]string {
	return map[string]string{"module": c.module.ID(), "tree": c.tree.ID, "choice": key}
}

func (s *Session) open(ctx context.Context, moduleID, treeID, interactableID, nodeID string) (*Conversation, error) {
	m, err := s.engine.Module(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	tree, ok := m.Dialogue(treeID)
	if !ok {
		return nil, domain.Errorf(domain.CodeDialogueNotFound, map[string]string{"module": moduleID, "tree": treeID}, "dialogue not found: %s", treeID)
	}
	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return nil, err
	}
	p, err := s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		return s.unlocked(ctx, p, modules, moduleID)
	})
	if err != nil {
		return nil, err
	}

	c := &Conversation{
		session:        s,
		module:         m,
		tree:           tree,
		interactableID: interactableID,
		overlay:        runtime.NewOverlay(),
	}
	dc := c.context(p)
	eng := s.engine.runtime

	var node *domain.DialogueNode
	if nodeID != "" {
		n, ok := eng.Lookup(tree, c.overlay, nodeID, dc)
		if !ok {
			return nil, domain.Errorf(domain.CodeDialogueInvalidReference, map[string]string{"module": moduleID, "tree": treeID, "node": nodeID},
				"node not found: %s", nodeID)
		}
		node = eng.ResolveNode(tree, n, dc)
	} else {
		node = eng.InitialNode(tree, c.overlay, dc)
	}
	if node == nil {
		return nil, domain.Errorf(domain.CodeDialogueInvalidReference, map[string]string{"module": moduleID, "tree": treeID}, "dialogue %s has no nodes", treeID)
	}
	c.visit(ctx, node, dc)
	return c, nil
}

// Turn is one stateless step of a conversation: where it stands and what the
// player does next. With Interactable set the interactable's dialogue is used
// and Tree is ignored. An empty Node opens the dialogue from its entry.
type Turn struct {
	Tree         string `json:"tree,omitempty" jsonschema_description:"Dialogue tree id (ignored when interactable is set)"`
	Interactable string `json:"interactable,omitempty" jsonschema_description:"Interactable to talk to"`
	Node         string `json:"node,omitempty" jsonschema_description:"Node to resume at; empty starts from the entry"`
	Choice       string `json:"choice,omitempty" jsonschema_description:"Choice key to take on the node"`
	Advance      bool   `json:"advance,omitempty" jsonschema_description:"Follow the node's automatic next"`
}

// Converse opens or resumes a conversation, applies the turn and returns the
// resulting view. Hosts without long-lived connections drive dialogues this way.
func (s *Session) Converse(ctx context.Context, moduleID string, turn Turn) (Snapshot, error) {
	var (
		conv *Conversation
		err  error
	)
	switch {
	case turn.Interactable != "" && turn.Node == "":
		conv, err = s.TalkTo(ctx, moduleID, turn.Interactable)
	case turn.Interactable != "":
		conv, err = s.ResumeTalk(ctx, moduleID, turn.Interactable, turn.Node)
	case turn.Tree == "":
		err = domain.Errorf(domain.CodeDialogueInvalidReference, map[string]string{"module": moduleID}, "a tree or an interactable is required")
	case turn.Node == "":
		conv, err = s.StartDialogue(ctx, moduleID, turn.Tree)
	default:
		conv, err = s.ResumeDialogue(ctx, moduleID, turn.Tree, turn.Node)
	}
	if err != nil {
		return Snapshot{}, err
	}

	switch {
	case turn.Choice != "":
		err = conv.Choose(ctx, turn.Choice)
	case turn.Advance:
		err = conv.Advance(ctx)
	}
	if err != nil {
		return conv.Snapshot(), err
	}
	return conv.Snapshot(), nil
}
