package progression

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// Report describes what a completion event changed.
type Report struct {
	TaskCompleted   bool     `json:"task_completed"`
	ModuleCompleted bool     `json:"module_completed"`
	Unlocked        []string `json:"unlocked,omitempty"`
}

// CompleteTask marks a task complete, completes its module when every task is done,
// then propagates unlocks across all modules.
func (e *Engine) CompleteTask(ctx context.Context, p *domain.Progress, modules []*domain.Module, moduleID, taskID string) (Report, error) {
	var owner *domain.Module
	for _, m := range modules {
		if m != nil && m.ID() == moduleID {
			owner = m
			break
		}
	}
	if owner == nil {
		return Report{}, domain.Errorf(domain.CodeModuleNotFound, map[string]string{"module": moduleID}, "module not found: %s", moduleID)
	}
	if _, ok := owner.Task(taskID); !ok {
		return Report{}, domain.Errorf(domain.CodeTaskNotFound, map[string]string{"module": moduleID, "task": taskID}, "task not found: %s/%s", moduleID, taskID)
	}

	var report Report
	report.TaskCompleted = p.Enter(moduleID).CompleteTask(taskID)
	if report.TaskCompleted && e.hooks.OnTaskCompleted != nil {
		e.hooks.OnTaskCompleted(ctx, &domain.TaskEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTaskCompleted, ProfileID: p.ProfileID, ModuleID: moduleID},
			TaskID:    taskID,
		})
	}
	report.ModuleCompleted = e.EvaluateModuleCompletion(ctx, p, owner)
	report.Unlocked = e.Propagate(ctx, p, modules)
	return report, nil
}

// EvaluateModuleCompletion marks a module completed once all of its tasks are
// complete. A module without tasks is never completed this way.
// It reports whether the module transitioned.
func (e *Engine) EvaluateModuleCompletion(ctx context.Context, p *domain.Progress, m *domain.Module) bool {
	if len(m.Tasks) == 0 {
		return false
	}
	mp, ok := p.Module(m.ID())
	if !ok {
		return false
	}
	for _, id := range m.TaskIDs() {
		if !mp.IsTaskComplete(id) {
			return false
		}
	}
	if !p.Advance(m.ID(), domain.StateCompleted) {
		return false
	}
	e.logger.Info("module completed", "module", m.ID(), "profile", p.ProfileID)
	if e.hooks.OnModuleCompleted != nil {
		e.hooks.OnModuleCompleted(ctx, &domain.ProgressionEvent{
			EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventModuleCompleted, ProfileID: p.ProfileID, ModuleID: m.ID()},
			SubjectKey: m.ID(),
			State:      domain.StateCompleted,
		})
	}
	return true
}

// Propagate unlocks every locked subject whose requirement is met without
// interaction, repeating until nothing changes. A subject whose requirement
// fails or panics is skipped without affecting the others.
// It returns the keys of the subjects unlocked, in order.
func (e *Engine) Propagate(ctx context.Context, p *domain.Progress, modules []*domain.Module) []string {
	subjects := Subjects(modules)
	var unlocked []string
	for {
		changed := false
		for _, s := range subjects {
			if p.StateOf(s.Key()) != domain.StateLocked {
				continue
			}
			check, err := e.safeCheck(p, s)
			if err != nil {
				e.logger.Error("unlock requirement failed", "module", s.ModuleID, "subject", s.Key(), "err", err)
				continue
			}
			if !check.CanUnlock || !p.Advance(s.Key(), domain.StateUnlocked) {
				continue
			}
			changed = true
			unlocked = append(unlocked, s.Key())
			e.logger.Info("subject unlocked", "module", s.ModuleID, "subject", s.Key(), "profile", p.ProfileID)
			if e.hooks.OnUnlock != nil {
				e.hooks.OnUnlock(ctx, &domain.ProgressionEvent{
					EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventUnlock, ProfileID: p.ProfileID, ModuleID: s.ModuleID},
					SubjectKey: s.Key(),
					State:      domain.StateUnlocked,
				})
			}
		}
		if !changed {
			return unlocked
		}
	}
}

// InitializeProgression relocks every subject that is not completed, then
// unlocks what is reachable passively. With WithKeepPasswordUnlocks, subjects
// unlocked behind a password stay unlocked.
func (e *Engine) InitializeProgression(ctx context.Context, p *domain.Progress, modules []*domain.Module) []string {
	for _, s := range Subjects(modules) {
		switch p.StateOf(s.Key()) {
		case domain.StateCompleted:
			continue
		case domain.StateUnlocked:
			if e.keepPassword && hasPassword(s.Requirement) {
				continue
			}
		}
		p.Relock(s.Key())
	}
	return e.Propagate(ctx, p, modules)
}

func (e *Engine) safeCheck(p *domain.Progress, s domain.Subject) (check domain.UnlockCheck, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating requirement: %v", r)
		}
	}()
	return e.CanUnlock(p, s)
}
