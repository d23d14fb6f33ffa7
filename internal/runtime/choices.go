package runtime

import (
	"github.com/aretw0/lessonweave/pkg/domain"
)

// AvailableChoice is a choice the player can pick right now.
type AvailableChoice struct {
	Key     string                `json:"key"`
	Text    string                `json:"text"`
	Actions []domain.ChoiceAction `json:"actions,omitempty"`
}

// AvailableChoices lists the visible choices of a node in declaration order.
// Choices whose condition fails are hidden, not disabled. Inline definition
// conditions and actions take precedence over the edge's.
func (e *Engine) AvailableChoices(tree *domain.DialogueTree, overlay *Overlay, node *domain.DialogueNode, dc *domain.Context) []AvailableChoice {
	if tree == nil || node == nil {
		return nil
	}

	var defs []domain.ChoiceDefinition
	if def, ok := tree.Definition(node.ID); ok && def.Choices.IsSet() {
		defs = Resolve(def.Choices, dc)
	} else {
		defs = make([]domain.ChoiceDefinition, 0, len(node.Choices))
		for _, c := range node.Choices {
			defs = append(defs, domain.ChoiceDefinition{Key: c.Key})
		}
	}

	out := make([]AvailableChoice, 0, len(defs))
	for _, cd := range defs {
		edge, _ := e.edge(tree, overlay, node.ID, cd.Key)
		if cond := effectiveCondition(cd, true, edge, dc); cond != nil && !e.EvalCondition(dc, *cond) {
			continue
		}

		var actions []domain.ChoiceAction
		switch {
		case cd.Actions.IsSet():
			actions = Resolve(cd.Actions, dc)
		case edge != nil:
			actions = edge.Actions
		}

		out = append(out, AvailableChoice{
			Key:     cd.Key,
			Text:    choiceText(node, cd, dc),
			Actions: actions,
		})
	}
	return out
}
