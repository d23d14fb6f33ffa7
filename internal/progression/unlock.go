package progression

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/aretw0/lessonweave/internal/runtime"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/logic"
)

// CanUnlock reports whether a locked subject's requirement is met without any
// player input. Subjects already unlocked or completed never report true.
// A password requirement is never met passively and reports RequiresInteraction.
func (e *Engine) CanUnlock(p *domain.Progress, s domain.Subject) (domain.UnlockCheck, error) {
	if p.StateOf(s.Key()) != domain.StateLocked {
		return domain.UnlockCheck{}, nil
	}
	return e.check(p, s, nil)
}

// Unlock attempts to unlock a subject, using candidate for any password leaf.
// It reports whether the subject transitioned to unlocked. Subjects that are not
// locked are left untouched.
func (e *Engine) Unlock(ctx context.Context, p *domain.Progress, s domain.Subject, candidate string) (bool, error) {
	if p.StateOf(s.Key()) != domain.StateLocked {
		return false, nil
	}
	check, err := e.check(p, s, &candidate)
	if err != nil {
		return false, err
	}
	if !check.CanUnlock {
		e.logger.Debug("unlock attempt rejected", "subject", s.Key())
		return false, nil
	}
	if !p.Advance(s.Key(), domain.StateUnlocked) {
		return false, nil
	}
	if e.hooks.OnUnlock != nil {
		e.hooks.OnUnlock(ctx, &domain.ProgressionEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventUnlock, ProfileID: p.ProfileID, ModuleID: s.ModuleID},
			SubjectKey: s.Key(),
			State:      domain.StateUnlocked,
		})
	}
	return true, nil
}

func (e *Engine) check(p *domain.Progress, s domain.Subject, candidate *string) (domain.UnlockCheck, error) {
	if s.Requirement == nil {
		return domain.UnlockCheck{CanUnlock: true}, nil
	}
	dc := &domain.Context{ModuleID: s.ModuleID, InteractableID: s.InteractableID, Progress: p}

	ok, err := logic.Eval(*s.Requirement, func(leaf domain.RequirementLeaf) (bool, error) {
		return evaluateLeaf(dc, leaf, candidate)
	})
	if err != nil {
		return domain.UnlockCheck{}, fmt.Errorf("requirement of %s: %w", s.Key(), err)
	}
	// A password anywhere in an unmet requirement asks for input, even when
	// evaluation short-circuited before reaching it.
	return domain.UnlockCheck{
		CanUnlock:           ok,
		RequiresInteraction: !ok && hasPassword(s.Requirement),
	}, nil
}

func evaluateLeaf(dc *domain.Context, leaf domain.RequirementLeaf, candidate *string) (bool, error) {
	switch leaf.Kind {
	case domain.RequirePassword:
		if candidate == nil {
			return false, nil
		}
		return subtle.ConstantTimeCompare([]byte(*candidate), []byte(leaf.Password)) == 1, nil
	case domain.RequireTaskComplete:
		module := leaf.Module
		if module == "" {
			module = dc.ModuleID
		}
		return runtime.EvaluateLeaf(dc, domain.ConditionLeaf{
			Kind:   domain.ConditionTaskComplete,
			Module: module,
			TaskID: leaf.TaskID,
		})
	case domain.RequireModuleComplete:
		return dc.Progress.StateOf(leaf.Module) == domain.StateCompleted, nil
	case domain.RequireCustom:
		if leaf.Predicate == nil {
			return false, fmt.Errorf("custom requirement %q has no predicate", leaf.Name)
		}
		return leaf.Predicate(dc)
	default:
		return false, fmt.Errorf("unknown requirement kind: %q", leaf.Kind)
	}
}

// hasPassword reports whether a requirement contains a password leaf anywhere.
func hasPassword(req *domain.UnlockRequirement) bool {
	if req == nil {
		return false
	}
	found := false
	logic.Walk(*req, func(leaf domain.RequirementLeaf) {
		if leaf.Kind == domain.RequirePassword {
			found = true
		}
	})
	return found
}
