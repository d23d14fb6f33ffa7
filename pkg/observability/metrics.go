package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/lessonweave/pkg/domain"
)

const namespace = "lessonweave"

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	NodeVisits       *prometheus.CounterVec
	Choices          *prometheus.CounterVec
	ActionErrors     *prometheus.CounterVec
	TaskValidations  *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	ModulesCompleted *prometheus.CounterVec
	Unlocks          *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg gets a fresh registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		registry: reg,
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "node_visits_total",
			Help:      "Total number of dialogue node visits.",
		}, []string{"module", "tree"}),
		Choices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "choices_total",
			Help:      "Total number of dialogue choices taken.",
		}, []string{"module", "tree"}),
		ActionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_errors_total",
			Help:      "Total number of choice actions that failed.",
		}, []string{"module", "tree"}),
		TaskValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_validations_total",
			Help:      "Total number of task submissions checked, by reason.",
		}, []string{"module", "reason"}),
		TasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_completed_total",
			Help:      "Total number of tasks completed.",
		}, []string{"module"}),
		ModulesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "modules_completed_total",
			Help:      "Total number of modules completed.",
		}, []string{"module"}),
		Unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unlocks_total",
			Help:      "Total number of modules and interactables unlocked.",
		}, []string{"module", "kind"}),
	}
	reg.MustRegister(
		m.NodeVisits,
		m.Choices,
		m.ActionErrors,
		m.TaskValidations,
		m.TasksCompleted,
		m.ModulesCompleted,
		m.Unlocks,
	)
	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks recording into the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(_ context.Context, e *domain.DialogueEvent) {
			m.NodeVisits.WithLabelValues(e.ModuleID, e.TreeID).Inc()
		},
		OnChoice: func(_ context.Context, e *domain.DialogueEvent) {
			m.Choices.WithLabelValues(e.ModuleID, e.TreeID).Inc()
		},
		OnActionError: func(_ context.Context, e *domain.DialogueEvent) {
			m.ActionErrors.WithLabelValues(e.ModuleID, e.TreeID).Inc()
		},
		OnTaskValidated: func(_ context.Context, e *domain.TaskEvent) {
			m.TaskValidations.WithLabelValues(e.ModuleID, e.Result.Reason).Inc()
		},
		OnTaskCompleted: func(_ context.Context, e *domain.TaskEvent) {
			m.TasksCompleted.WithLabelValues(e.ModuleID).Inc()
		},
		OnModuleCompleted: func(_ context.Context, e *domain.ProgressionEvent) {
			m.ModulesCompleted.WithLabelValues(e.ModuleID).Inc()
		},
		OnUnlock: func(_ context.Context, e *domain.ProgressionEvent) {
			kind := "module"
			if e.SubjectKey != e.ModuleID {
				kind = "interactable"
			}
			m.Unlocks.WithLabelValues(e.ModuleID, kind).Inc()
		},
	}
}
