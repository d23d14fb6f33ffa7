package runtime

import (
	"github.com/aretw0/lessonweave/pkg/domain"
)

// Resolve returns the concrete value of a content field for this visit.
func Resolve[T any](f domain.Field[T], dc *domain.Context) T {
	return f.Resolve(dc)
}

// ResolveNode applies the node's definition, if any, to produce the node shown for this
// visit. Without a definition the node is returned unchanged.
func (e *Engine) ResolveNode(tree *domain.DialogueTree, node *domain.DialogueNode, dc *domain.Context) *domain.DialogueNode {
	if node == nil {
		return nil
	}
	resolved := *node
	def, ok := tree.Definition(node.ID)
	if !ok {
		return &resolved
	}

	if def.Lines.IsSet() {
		resolved.Lines = Resolve(def.Lines, dc)
	}
	if def.Choices.IsSet() {
		defs := Resolve(def.Choices, dc)
		choices := make([]domain.Choice, 0, len(defs))
		for _, cd := range defs {
			choices = append(choices, domain.Choice{
				Key:  cd.Key,
				Text: choiceText(node, cd, dc),
			})
		}
		resolved.Choices = choices
	}
	return &resolved
}

// choiceText prefers the definition text, then the static node's text, then the key.
func choiceText(node *domain.DialogueNode, cd domain.ChoiceDefinition, dc *domain.Context) string {
	if cd.Text.IsSet() {
		return Resolve(cd.Text, dc)
	}
	for _, c := range node.Choices {
		if c.Key == cd.Key && c.Text != "" {
			return c.Text
		}
	}
	return cd.Key
}
