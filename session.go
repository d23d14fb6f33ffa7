package lessonweave

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/lessonweave/internal/progression"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/task"
)

// Session is the view of one profile. Every call loads the progress document
// under the profile lock, mutates it and saves it back.
type Session struct {
	engine    *Engine
	profileID string
	logger    *slog.Logger
}

// ProfileID returns the profile this session acts for.
func (s *Session) ProfileID() string {
	return s.profileID
}

// Progress returns the profile's progress, creating an empty document on first use.
func (s *Session) Progress(ctx context.Context) (*domain.Progress, error) {
	return s.engine.sessions.LoadOrCreate(ctx, s.profileID)
}

// Initialize reconciles the progression map with the current catalog and
// returns the keys of the subjects unlocked.
func (s *Session) Initialize(ctx context.Context) ([]string, error) {
	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return nil, err
	}
	var unlocked []string
	_, err = s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		unlocked = s.engine.progression.InitializeProgression(ctx, p, modules)
		return nil
	})
	return unlocked, err
}

// Enter makes a module active, creating its progress on first entry.
// Locked modules are refused with MODULE_LOCKED; a different active module
// yields MODULE_ALREADY_ACTIVE.
func (s *Session) Enter(ctx context.Context, moduleID string) (*domain.ModuleProgress, error) {
	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.engine.Module(ctx, moduleID); err != nil {
		return nil, err
	}

	var entered *domain.ModuleProgress
	_, err = s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		if p.ActiveModule != "" && p.ActiveModule != moduleID {
			return domain.Errorf(domain.CodeModuleAlreadyActive, map[string]string{"module": moduleID, "active": p.ActiveModule},
				"module %s is active; leave it before entering %s", p.ActiveModule, moduleID)
		}
		if err := s.unlocked(ctx, p, modules, moduleID); err != nil {
			return err
		}
		entered = p.Enter(moduleID)
		p.ActiveModule = moduleID
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("module entered", "module", moduleID)
	return entered, nil
}

// Leave clears the active module.
func (s *Session) Leave(ctx context.Context) error {
	_, err := s.update(ctx, func(_ context.Context, p *domain.Progress) error {
		p.ActiveModule = ""
		return nil
	})
	return err
}

// Reset deletes a module's progress and relocks it.
func (s *Session) Reset(ctx context.Context, moduleID string) error {
	if _, err := s.engine.Module(ctx, moduleID); err != nil {
		return err
	}
	_, err := s.update(ctx, func(_ context.Context, p *domain.Progress) error {
		p.Reset(moduleID)
		return nil
	})
	return err
}

// CanUnlock reports whether a module (interactableID empty) or an interactable
// can be unlocked without player input.
func (s *Session) CanUnlock(ctx context.Context, moduleID, interactableID string) (domain.UnlockCheck, error) {
	subject, err := s.subject(ctx, moduleID, interactableID)
	if err != nil {
		return domain.UnlockCheck{}, err
	}
	p, err := s.Progress(ctx)
	if err != nil {
		return domain.UnlockCheck{}, err
	}
	return s.engine.progression.CanUnlock(p, subject)
}

// Unlock attempts an unlock with the given password candidate (may be empty).
// A successful unlock propagates to dependent subjects.
func (s *Session) Unlock(ctx context.Context, moduleID, interactableID, password string) (bool, error) {
	subject, err := s.subject(ctx, moduleID, interactableID)
	if err != nil {
		return false, err
	}
	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return false, err
	}

	var unlocked bool
	_, err = s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		var err error
		unlocked, err = s.engine.progression.Unlock(ctx, p, subject, password)
		if err != nil {
			return err
		}
		if unlocked {
			s.engine.progression.Propagate(ctx, p, modules)
		}
		return nil
	})
	return unlocked, err
}

// SubmitTask validates a submission and, when it passes, completes the task,
// evaluates module completion and propagates unlocks. A failing submission is
// not an error: inspect the Result. Locked modules are refused with
// MODULE_LOCKED before the submission is validated.
func (s *Session) SubmitTask(ctx context.Context, moduleID, taskID, submission string) (domain.Result, progression.Report, error) {
	submission, err := task.Sanitize(submission, s.engine.maxSubmit)
	if err != nil {
		reason := task.ReasonInvalidInput
		if errors.Is(err, task.ErrSubmissionTooLarge) {
			reason = task.ReasonTooLong
		}
		return domain.Failure(reason, "This answer cannot be accepted."),
			progression.Report{},
			domain.WrapError(domain.CodeTaskInvalidSubmission, fmt.Sprintf("submission for %s/%s", moduleID, taskID), err)
	}
	m, err := s.engine.Module(ctx, moduleID)
	if err != nil {
		return domain.Result{}, progression.Report{}, err
	}
	t, ok := m.Task(taskID)
	if !ok {
		return domain.Result{}, progression.Report{}, domain.Errorf(domain.CodeTaskNotFound,
			map[string]string{"module": moduleID, "task": taskID}, "task not found: %s/%s", moduleID, taskID)
	}

	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return domain.Result{}, progression.Report{}, err
	}
	if err := s.gate(ctx, modules, moduleID); err != nil {
		return domain.Result{}, progression.Report{}, err
	}

	validate := t.Validate
	if validate == nil {
		validate = task.Length(1)
	}
	result, err := task.Run(validate, submission)
	if hook := s.engine.hooks.OnTaskValidated; hook != nil {
		hook(ctx, &domain.TaskEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventTaskValidated, ProfileID: s.profileID, ModuleID: moduleID},
			TaskID:    taskID,
			Result:    result,
		})
	}
	if err != nil {
		s.logger.Error("task evaluation failed", "module", moduleID, "task", taskID, "err", err)
		return result, progression.Report{}, err
	}
	if !result.OK {
		return result, progression.Report{}, nil
	}

	var report progression.Report
	_, err = s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		if err := s.unlocked(ctx, p, modules, moduleID); err != nil {
			return err
		}
		var err error
		report, err = s.engine.progression.CompleteTask(ctx, p, modules, moduleID, taskID)
		return err
	})
	if err != nil {
		return result, progression.Report{}, err
	}
	return result, report, nil
}

// AcceptTask makes a task the module's current task unless it is already complete.
// Tasks of locked modules are refused with MODULE_LOCKED.
func (s *Session) AcceptTask(ctx context.Context, moduleID, taskID string) error {
	m, err := s.engine.Module(ctx, moduleID)
	if err != nil {
		return err
	}
	if _, ok := m.Task(taskID); !ok {
		return domain.Errorf(domain.CodeTaskNotFound, map[string]string{"module": moduleID, "task": taskID}, "task not found: %s/%s", moduleID, taskID)
	}
	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return err
	}
	_, err = s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		if err := s.unlocked(ctx, p, modules, moduleID); err != nil {
			return err
		}
		dc := &domain.Context{ModuleID: moduleID, Progress: p}
		_, err := s.engine.runtime.ProcessActions(ctx, dc, domain.AcceptTask(taskID))
		return err
	})
	return err
}

// StartDialogue opens a conversation on a dialogue tree of a module.
func (s *Session) StartDialogue(ctx context.Context, moduleID, treeID string) (*Conversation, error) {
	return s.open(ctx, moduleID, treeID, "", "")
}

// TalkTo opens the dialogue of an interactable. Locked interactables are refused.
func (s *Session) TalkTo(ctx context.Context, moduleID, interactableID string) (*Conversation, error) {
	return s.talk(ctx, moduleID, interactableID, "")
}

// ResumeDialogue reopens a conversation at a known node, e.g. one saved by the host.
func (s *Session) ResumeDialogue(ctx context.Context, moduleID, treeID, nodeID string) (*Conversation, error) {
	if nodeID == "" {
		return nil, domain.Errorf(domain.CodeDialogueInvalidReference, map[string]string{"module": moduleID, "tree": treeID}, "node id is required")
	}
	return s.open(ctx, moduleID, treeID, "", nodeID)
}

// ResumeTalk reopens an interactable's conversation at a known node.
func (s *Session) ResumeTalk(ctx context.Context, moduleID, interactableID, nodeID string) (*Conversation, error) {
	if nodeID == "" {
		return nil, domain.Errorf(domain.CodeDialogueInvalidReference, map[string]string{"module": moduleID, "interactable": interactableID}, "node id is required")
	}
	return s.talk(ctx, moduleID, interactableID, nodeID)
}

func (s *Session) talk(ctx context.Context, moduleID, interactableID, nodeID string) (*Conversation, error) {
	m, err := s.engine.Module(ctx, moduleID)
	if err != nil {
		return nil, err
	}
	it, ok := m.Interactable(interactableID)
	if !ok || it.Dialogue == "" {
		return nil, domain.Errorf(domain.CodeDialogueNotFound, map[string]string{"module": moduleID, "interactable": interactableID},
			"interactable %s has no dialogue", interactableID)
	}
	p, err := s.Progress(ctx)
	if err != nil {
		return nil, err
	}
	if p.StateOf(domain.SubjectKey(moduleID, interactableID)) == domain.StateLocked {
		return nil, domain.Errorf(domain.CodeModuleLocked, map[string]string{"module": moduleID, "interactable": interactableID},
			"interactable is locked: %s/%s", moduleID, interactableID)
	}
	return s.open(ctx, moduleID, it.Dialogue, interactableID, nodeID)
}

func (s *Session) subject(ctx context.Context, moduleID, interactableID string) (domain.Subject, error) {
	m, err := s.engine.Module(ctx, moduleID)
	if err != nil {
		return domain.Subject{}, err
	}
	if interactableID == "" {
		return m.Subject(), nil
	}
	it, ok := m.Interactable(interactableID)
	if !ok {
		return domain.Subject{}, domain.Errorf(domain.CodeModuleInvalidStructure, map[string]string{"module": moduleID, "interactable": interactableID},
			"interactable not found: %s/%s", moduleID, interactableID)
	}
	return m.InteractableSubject(it), nil
}

// gate refuses a locked module after giving passive unlocks a chance.
func (s *Session) gate(ctx context.Context, modules []*domain.Module, moduleID string) error {
	_, err := s.update(ctx, func(ctx context.Context, p *domain.Progress) error {
		return s.unlocked(ctx, p, modules, moduleID)
	})
	return err
}

func (s *Session) unlocked(ctx context.Context, p *domain.Progress, modules []*domain.Module, moduleID string) error {
	if p.StateOf(moduleID) == domain.StateLocked {
		s.engine.progression.Propagate(ctx, p, modules)
	}
	if p.StateOf(moduleID) == domain.StateLocked {
		return domain.Errorf(domain.CodeModuleLocked, map[string]string{"module": moduleID}, "module is locked: %s", moduleID)
	}
	return nil
}

func (s *Session) update(ctx context.Context, fn func(context.Context, *domain.Progress) error) (*domain.Progress, error) {
	p, err := s.engine.sessions.Update(ctx, s.profileID, fn)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", s.profileID, err)
	}
	return p, nil
}
