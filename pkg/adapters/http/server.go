// Package http exposes a lessonweave Engine as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/presentation/graph"
	"github.com/aretw0/lessonweave/internal/progression"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/observability"
)

// Server serves the API of one Engine.
type Server struct {
	engine  *lessonweave.Engine
	streams *StreamManager
	metrics *observability.Metrics
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithStreams sets the stream manager feeding /profiles/{profile}/events.
// Its hooks must also be installed on the engine for events to flow.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.streams = sm
	}
}

// WithMetrics mounts the Prometheus handler of m on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine *lessonweave.Engine, opts ...Option) http.Handler {
	s := &Server{
		engine: engine,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.streams == nil {
		s.streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeReload)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/modules", func(r chi.Router) {
		r.Get("/", s.ListModules)
		r.Get("/graph", s.GetCatalogGraph)
		r.Get("/{module}", s.GetModule)
		r.Get("/{module}/dialogues/{tree}/graph", s.GetDialogueGraph)
	})

	r.Route("/profiles/{profile}", func(r chi.Router) {
		r.Get("/progress", s.GetProgress)
		r.Get("/events", s.SubscribeProfile)
		r.Post("/initialize", s.Initialize)
		r.Post("/enter", s.Enter)
		r.Post("/leave", s.Leave)

		r.Route("/modules/{module}", func(r chi.Router) {
			r.Delete("/", s.Reset)
			r.Get("/unlock", s.CanUnlock)
			r.Post("/unlock", s.Unlock)
			r.Post("/tasks/{task}/accept", s.AcceptTask)
			r.Post("/tasks/{task}/submit", s.SubmitTask)
			r.Post("/dialogue", s.Converse)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "lessonweave-http",
		"version": strings.TrimSpace(lessonweave.Version),
	})
}

// ModuleView is the public description of a module.
type ModuleView struct {
	domain.Manifest
	Welcome       string                `json:"welcome,omitempty"`
	Background    string                `json:"background,omitempty"`
	Tasks         []domain.Task         `json:"tasks"`
	Interactables []domain.Interactable `json:"interactables"`
	Dialogues     []string              `json:"dialogues"`
	Gated         bool                  `json:"gated"`
}

// NewModuleView builds the public description of m.
func NewModuleView(m *domain.Module) ModuleView {
	v := ModuleView{
		Manifest:      m.Manifest,
		Welcome:       m.Welcome,
		Background:    m.Background,
		Tasks:         append([]domain.Task{}, m.Tasks...),
		Interactables: append([]domain.Interactable{}, m.Interactables...),
		Dialogues:     make([]string, 0, len(m.Dialogues)),
		Gated:         m.Requirement != nil,
	}
	for id := range m.Dialogues {
		v.Dialogues = append(v.Dialogues, id)
	}
	slices.Sort(v.Dialogues)
	return v
}

// ListModules handles GET /modules.
func (s *Server) ListModules(w http.ResponseWriter, r *http.Request) {
	modules, err := s.engine.Modules(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := make([]domain.Manifest, 0, len(modules))
	for _, m := range modules {
		out = append(out, m.Manifest)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// GetModule handles GET /modules/{module}.
func (s *Server) GetModule(w http.ResponseWriter, r *http.Request) {
	m, err := s.engine.Module(r.Context(), chi.URLParam(r, "module"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, NewModuleView(m))
}

// GetCatalogGraph handles GET /modules/graph, rendering unlock dependencies as Mermaid.
func (s *Server) GetCatalogGraph(w http.ResponseWriter, r *http.Request) {
	modules, err := s.engine.Modules(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeText(w, graph.GenerateCatalog(modules))
}

// GetDialogueGraph handles GET /modules/{module}/dialogues/{tree}/graph.
func (s *Server) GetDialogueGraph(w http.ResponseWriter, r *http.Request) {
	moduleID, treeID := chi.URLParam(r, "module"), chi.URLParam(r, "tree")
	m, err := s.engine.Module(r.Context(), moduleID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	tree, ok := m.Dialogue(treeID)
	if !ok {
		s.writeError(w, r, domain.Errorf(domain.CodeDialogueNotFound, map[string]string{"module": moduleID, "tree": treeID}, "dialogue not found: %s", treeID))
		return
	}
	writeText(w, graph.GenerateMermaid(tree, nil))
}

// GetProgress handles GET /profiles/{profile}/progress.
func (s *Server) GetProgress(w http.ResponseWriter, r *http.Request) {
	p, err := s.session(r).Progress(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

// Initialize handles POST /profiles/{profile}/initialize.
func (s *Server) Initialize(w http.ResponseWriter, r *http.Request) {
	unlocked, err := s.session(r).Initialize(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, UnlockedResponse{Unlocked: nonNil(unlocked)})
}

// EnterRequest is the body of POST /profiles/{profile}/enter.
type EnterRequest struct {
	Module string `json:"module"`
}

// Enter handles POST /profiles/{profile}/enter.
func (s *Server) Enter(w http.ResponseWriter, r *http.Request) {
	var body EnterRequest
	if !s.decode(w, r, &body) {
		return
	}
	mp, err := s.session(r).Enter(r.Context(), body.Module)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, mp)
}

// Leave handles POST /profiles/{profile}/leave.
func (s *Server) Leave(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Leave(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles DELETE /profiles/{profile}/modules/{module}.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).Reset(r.Context(), chi.URLParam(r, "module")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CanUnlock handles GET /profiles/{profile}/modules/{module}/unlock?interactable=.
func (s *Server) CanUnlock(w http.ResponseWriter, r *http.Request) {
	check, err := s.session(r).CanUnlock(r.Context(), chi.URLParam(r, "module"), r.URL.Query().Get("interactable"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, check)
}

// UnlockRequest is the body of POST /profiles/{profile}/modules/{module}/unlock.
type UnlockRequest struct {
	Interactable string `json:"interactable,omitempty"`
	Password     string `json:"password,omitempty"`
}

// UnlockedResponse lists what an operation unlocked.
type UnlockedResponse struct {
	Success  *bool    `json:"success,omitempty"`
	Unlocked []string `json:"unlocked"`
}

// Unlock handles POST /profiles/{profile}/modules/{module}/unlock.
func (s *Server) Unlock(w http.ResponseWriter, r *http.Request) {
	var body UnlockRequest
	if !s.decode(w, r, &body) {
		return
	}
	moduleID := chi.URLParam(r, "module")
	ok, err := s.session(r).Unlock(r.Context(), moduleID, body.Interactable, body.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := UnlockedResponse{Success: &ok, Unlocked: []string{}}
	if ok {
		resp.Unlocked = append(resp.Unlocked, domain.SubjectKey(moduleID, body.Interactable))
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// AcceptTask handles POST /profiles/{profile}/modules/{module}/tasks/{task}/accept.
func (s *Server) AcceptTask(w http.ResponseWriter, r *http.Request) {
	if err := s.session(r).AcceptTask(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "task")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubmitRequest is the body of a task submission.
type SubmitRequest struct {
	Submission string `json:"submission"`
}

// SubmitResponse is the outcome of a task submission.
type SubmitResponse struct {
	Result domain.Result        `json:"result"`
	Report progression.Report   `json:"report"`
	Diff   *domain.ProgressDiff `json:"diff,omitempty"`
}

// SubmitTask handles POST /profiles/{profile}/modules/{module}/tasks/{task}/submit.
// A failing submission is a 200 with result.ok false. The response carries the
// progress changes so clients can patch their copy.
func (s *Server) SubmitTask(w http.ResponseWriter, r *http.Request) {
	var body SubmitRequest
	if !s.decode(w, r, &body) {
		return
	}
	sess := s.session(r)
	before, err := sess.Progress(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	result, report, err := sess.SubmitTask(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "task"), body.Submission)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	resp := SubmitResponse{Result: result, Report: report}
	if after, err := sess.Progress(r.Context()); err == nil {
		resp.Diff = domain.Diff(before, after)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// Converse handles POST /profiles/{profile}/modules/{module}/dialogue.
// The body is a lessonweave.Turn; the response is the resulting Snapshot.
func (s *Server) Converse(w http.ResponseWriter, r *http.Request) {
	var turn lessonweave.Turn
	if !s.decode(w, r, &turn) {
		return
	}
	snap, err := s.session(r).Converse(r.Context(), chi.URLParam(r, "module"), turn)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, snap)
}

// -- Helpers --

func (s *Server) session(r *http.Request) *lessonweave.Session {
	return s.engine.Session(chi.URLParam(r, "profile"))
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Code: "INVALID_REQUEST", Message: "invalid request body"})
		return false
	}
	return true
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// StatusOf maps an error to an HTTP status by its domain code.
func StatusOf(err error) int {
	if errors.Is(err, domain.ErrProfileNotFound) {
		return http.StatusNotFound
	}
	switch domain.CodeOf(err) {
	case domain.CodeModuleNotFound, domain.CodeTaskNotFound, domain.CodeDialogueNotFound:
		return http.StatusNotFound
	case domain.CodeModuleLocked:
		return http.StatusForbidden
	case domain.CodeModuleAlreadyActive:
		return http.StatusConflict
	case domain.CodeTaskInvalidSubmission, domain.CodeDialogueInvalidReference, domain.CodeModuleInvalidStructure:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	resp := ErrorResponse{Code: "INTERNAL", Message: err.Error()}
	var de *domain.Error
	if errors.As(err, &de) {
		resp.Code = string(de.Code)
		resp.Metadata = de.Metadata
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("request rejected", "path", r.URL.Path, "code", resp.Code)
	}
	s.writeJSON(w, status, resp)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func writeText(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
