package validator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/internal/validator"
	"github.com/aretw0/lessonweave/pkg/content"
	"github.com/aretw0/lessonweave/pkg/domain"
)

func parse(t *testing.T, doc string) *domain.Module {
	t.Helper()
	m, err := content.NewDecoder().Parse([]byte(doc))
	require.NoError(t, err)
	return m
}

const valid = `
id: basics
tasks:
  - id: hello
interactables:
  - id: mentor
    dialogue: mentor
dialogues:
  mentor:
    task: hello
    entry: start
    nodes:
      - id: start
        lines: ["Hi"]
        choices:
          - key: go
            next: tip
          - key: task
            next: task:hello:ready
      - id: tip
        next: start
`

func TestValidateModule(t *testing.T) {
	t.Run("Valid module", func(t *testing.T) {
		assert.NoError(t, validator.ValidateModule(parse(t, valid)))
	})

	t.Run("Broken references", func(t *testing.T) {
		m := parse(t, `
id: broken
tasks:
  - id: a
  - id: a
interactables:
  - id: ghost
    dialogue: nowhere
dialogues:
  talk:
    task: missing
    entry:
      cases:
        - when: { task_complete: a }
          node: gone
      default: start
    nodes:
      - id: start
        choices:
          - key: go
            next: void
      - id: loop
        next: nothing
`)
		err := validator.ValidateModule(m)
		require.Error(t, err)
		msg := err.Error()
		assert.Contains(t, msg, "duplicate task 'a'")
		assert.Contains(t, msg, "missing dialogue 'nowhere'")
		assert.Contains(t, msg, "bound to missing task 'missing'")
		assert.Contains(t, msg, "points to missing node 'void'")
		assert.Contains(t, msg, "advances to missing node 'nothing'")
		assert.Contains(t, msg, "entry case 0 points to missing node 'gone'")
	})

	t.Run("Edges leaving unknown nodes and duplicates", func(t *testing.T) {
		m := parse(t, valid)
		tree, _ := m.Dialogue("mentor")
		tree.Edges = append(tree.Edges,
			domain.DialogueEdge{From: "start", ChoiceKey: "go", Next: domain.To("tip")},
			domain.DialogueEdge{From: "phantom", ChoiceKey: "x", Next: domain.CloseDialogue},
		)
		err := validator.ValidateModule(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate edge 'start' -[go]->")
		assert.Contains(t, err.Error(), "leaves missing node 'phantom'")
	})
}

func TestValidateCatalog(t *testing.T) {
	basics := parse(t, valid)
	workshop := parse(t, `
id: workshop
requires:
  all:
    - { module: basics }
    - { task: basics/hello }
    - { task: basics/nope }
    - { module: advanced }
`)

	err := validator.ValidateCatalog([]*domain.Module{basics, workshop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires missing task 'basics/nope'")
	assert.Contains(t, err.Error(), "requires missing module 'advanced'")
	assert.NotContains(t, err.Error(), "basics/hello")

	assert.NoError(t, validator.ValidateCatalog([]*domain.Module{basics}))
}
