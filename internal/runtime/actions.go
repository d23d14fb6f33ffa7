package runtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Signals are the navigation requests raised while processing actions.
type Signals struct {
	GoTo  string
	Close bool
}

// ErrNoProgress is returned when a state-mutating action runs without a progress document.
var ErrNoProgress = errors.New("no progress document in context")

// ProcessActions runs actions in order. The first failing action stops the
// pipeline and its error is returned; effects of earlier actions are kept.
func (e *Engine) ProcessActions(ctx context.Context, dc *domain.Context, actions ...domain.ChoiceAction) (Signals, error) {
	var sig Signals
	for i, a := range actions {
		if err := e.processAction(ctx, dc, a, &sig); err != nil {
			return sig, fmt.Errorf("action %d (%s): %w", i, a.Kind, err)
		}
	}
	return sig, nil
}

func (e *Engine) processAction(ctx context.Context, dc *domain.Context, a domain.ChoiceAction, sig *Signals) error {
	switch a.Kind {
	case domain.ActionAcceptTask:
		if dc == nil || dc.Progress == nil {
			return ErrNoProgress
		}
		target := a.Module
		if target == "" {
			target = dc.ModuleID
		}
		m := dc.Progress.Enter(target)
		if m.IsTaskComplete(a.TaskID) {
			e.logger.Debug("task already complete, not accepting", "module", target, "task", a.TaskID)
			return nil
		}
		m.CurrentTaskID = a.TaskID
		return nil

	case domain.ActionSetState:
		if dc == nil || dc.Progress == nil {
			return ErrNoProgress
		}
		target := a.Module
		if target == "" {
			target = dc.ModuleID
		}
		m := dc.Progress.Enter(target)
		if a.Scope == domain.ScopeInteractable {
			id := a.Interactable
			if id == "" {
				id = dc.InteractableID
			}
			if id == "" {
				e.logger.Warn("interactable state without interactable, skipping", "module", target, "key", a.Key)
				return nil
			}
			m.SetInteractableValue(id, a.Key, a.Value)
			return nil
		}
		m.SetModuleValue(a.Key, a.Value)
		return nil

	case domain.ActionCallFunction:
		if a.Func != nil {
			if err := a.Func(ctx, dc, a.Args); err != nil {
				return fmt.Errorf("handler %s: %w", a.Handler, err)
			}
			return nil
		}
		return e.registry.Execute(ctx, a.Handler, dc, a.Args)

	case domain.ActionGoTo:
		sig.GoTo = a.NodeID
		return nil

	case domain.ActionCloseDialogue:
		sig.Close = true
		return nil

	case domain.ActionNone, "":
		return nil

	default:
		e.logger.Warn("unknown action kind, skipping", "kind", a.Kind)
		return nil
	}
}
