package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// LogHooks returns lifecycle hooks writing one structured record per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.DialogueEvent) {
			logger.DebugContext(ctx, "node_enter", "profile", e.ProfileID, "module", e.ModuleID, "tree", e.TreeID, "node", e.NodeID)
		},
		OnChoice: func(ctx context.Context, e *domain.DialogueEvent) {
			logger.InfoContext(ctx, "choice", "profile", e.ProfileID, "module", e.ModuleID, "tree", e.TreeID, "node", e.NodeID, "choice", e.ChoiceKey)
		},
		OnActionError: func(ctx context.Context, e *domain.DialogueEvent) {
			logger.WarnContext(ctx, "action_error", "profile", e.ProfileID, "module", e.ModuleID, "tree", e.TreeID, "node", e.NodeID, "choice", e.ChoiceKey, "err", e.Err)
		},
		OnTaskValidated: func(ctx context.Context, e *domain.TaskEvent) {
			logger.InfoContext(ctx, "task_validated", "profile", e.ProfileID, "module", e.ModuleID, "task", e.TaskID, "ok", e.Result.OK, "reason", e.Result.Reason)
		},
		OnTaskCompleted: func(ctx context.Context, e *domain.TaskEvent) {
			logger.InfoContext(ctx, "task_completed", "profile", e.ProfileID, "module", e.ModuleID, "task", e.TaskID)
		},
		OnModuleCompleted: func(ctx context.Context, e *domain.ProgressionEvent) {
			logger.InfoContext(ctx, "module_completed", "profile", e.ProfileID, "module", e.ModuleID)
		},
		OnUnlock: func(ctx context.Context, e *domain.ProgressionEvent) {
			logger.InfoContext(ctx, "unlock", "profile", e.ProfileID, "module", e.ModuleID, "subject", e.SubjectKey)
		},
	}
}
