package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Choice keys and handler used by synthesized task screens.
const (
	ChoiceBegin = "begin"
	ChoiceLater = "later"
	ChoiceDone  = "done"

	OpenTaskHandler = "open_task"
)

const (
	taskNodePrefix = "task:"
	readySuffix    = ":ready"
	completeSuffix = ":complete"
)

// TaskReadyNodeID is the id of the screen offering to start a task.
func TaskReadyNodeID(taskID string) string {
	return taskNodePrefix + taskID + readySuffix
}

// TaskCompleteNodeID is the id of the screen confirming a finished task.
func TaskCompleteNodeID(taskID string) string {
	return taskNodePrefix + taskID + completeSuffix
}

// taskScreen decides which task screen, if any, a tree bound to a task should open with.
func (e *Engine) taskScreen(tree *domain.DialogueTree, dc *domain.Context) (string, bool) {
	if tree.TaskID == "" {
		return "", false
	}
	m := dc.Module()
	switch {
	case m.IsTaskComplete(tree.TaskID):
		return TaskCompleteNodeID(tree.TaskID), true
	case m.CurrentTaskID == tree.TaskID:
		return TaskReadyNodeID(tree.TaskID), true
	default:
		return "", false
	}
}

// synthesize builds the task screen with the given id for the tree's task.
func (e *Engine) synthesize(tree *domain.DialogueTree, nodeID string, dc *domain.Context) (domain.DialogueNode, []domain.DialogueEdge, bool) {
	taskID := tree.TaskID
	if taskID == "" {
		return domain.DialogueNode{}, nil, false
	}
	title := e.taskTitle(moduleID(dc), taskID)

	switch nodeID {
	case TaskReadyNodeID(taskID):
		node := domain.DialogueNode{
			ID:    nodeID,
			Lines: []string{fmt.Sprintf("Ready to work on %s?", title)},
			Choices: []domain.Choice{
				{Key: ChoiceBegin, Text: "Let's begin."},
				{Key: ChoiceLater, Text: "Maybe later."},
			},
		}
		edges := []domain.DialogueEdge{
			{
				From:      nodeID,
				ChoiceKey: ChoiceBegin,
				Next:      domain.CloseDialogue,
				Actions: []domain.ChoiceAction{
					domain.CallFunction(OpenTaskHandler, map[string]any{"task": taskID}),
				},
			},
			{From: nodeID, ChoiceKey: ChoiceLater, Next: domain.CloseDialogue},
		}
		return node, edges, true
	case TaskCompleteNodeID(taskID):
		node := domain.DialogueNode{
			ID:      nodeID,
			Lines:   []string{fmt.Sprintf("You have completed %s. Well done!", title)},
			Choices: []domain.Choice{{Key: ChoiceDone, Text: "Thanks!"}},
		}
		edges := []domain.DialogueEdge{
			{From: nodeID, ChoiceKey: ChoiceDone, Next: domain.CloseDialogue},
		}
		return node, edges, true
	default:
		return domain.DialogueNode{}, nil, false
	}
}

func (e *Engine) taskTitle(moduleID, taskID string) string {
	if e.tasks != nil {
		if t, ok := e.tasks(moduleID, taskID); ok && strings.TrimSpace(t.Title) != "" {
			return fmt.Sprintf("%q", t.Title)
		}
	}
	return "this task"
}
