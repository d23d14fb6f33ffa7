// Package mcp exposes a lessonweave Engine as Model Context Protocol tools,
// so an agent can play or supervise a course.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/presentation/graph"
	"github.com/aretw0/lessonweave/internal/progression"
	"github.com/aretw0/lessonweave/pkg/domain"
)

const catalogURI = "lessonweave://catalog"

// Server wraps the engine and exposes it as an MCP server.
type Server struct {
	engine    *lessonweave.Engine
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates an MCP server with every tool and resource registered.
func NewServer(engine *lessonweave.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: engine,
		logger: logger,
		mcpServer: server.NewMCPServer("lessonweave-mcp", strings.TrimSpace(lessonweave.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on Stdin/Stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves over Server-Sent Events on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

// -- Tool inputs and outputs --

// ProfileInput identifies the learner.
type ProfileInput struct {
	Profile string `json:"profile" jsonschema:"required" jsonschema_description:"Learner profile id"`
}

// ModuleInput identifies a learner and a module.
type ModuleInput struct {
	Profile string `json:"profile" jsonschema:"required" jsonschema_description:"Learner profile id"`
	Module  string `json:"module" jsonschema:"required" jsonschema_description:"Module id"`
}

// UnlockInput is the input of the unlock tool.
type UnlockInput struct {
	Profile      string `json:"profile" jsonschema:"required" jsonschema_description:"Learner profile id"`
	Module       string `json:"module" jsonschema:"required" jsonschema_description:"Module id"`
	Interactable string `json:"interactable,omitempty" jsonschema_description:"Interactable id; empty unlocks the module"`
	Password     string `json:"password,omitempty" jsonschema_description:"Password candidate"`
}

// SubmitInput is the input of the submit_task tool.
type SubmitInput struct {
	Profile    string `json:"profile" jsonschema:"required" jsonschema_description:"Learner profile id"`
	Module     string `json:"module" jsonschema:"required" jsonschema_description:"Module id"`
	Task       string `json:"task" jsonschema:"required" jsonschema_description:"Task id"`
	Submission string `json:"submission" jsonschema:"required" jsonschema_description:"The learner's answer"`
}

// ConverseInput is the input of the converse tool.
type ConverseInput struct {
	Profile string `json:"profile" jsonschema:"required" jsonschema_description:"Learner profile id"`
	Module  string `json:"module" jsonschema:"required" jsonschema_description:"Module id"`
	lessonweave.Turn
}

// CatalogResult lists the modules.
type CatalogResult struct {
	Modules []domain.Manifest `json:"modules" jsonschema_description:"Modules in play order"`
}

// UnlockResult is the output of unlock and initialize.
type UnlockResult struct {
	Success  bool     `json:"success" jsonschema_description:"Whether the requested subject was unlocked"`
	Unlocked []string `json:"unlocked" jsonschema_description:"Subject keys unlocked"`
}

// SubmitResult is the output of submit_task.
type SubmitResult struct {
	Result domain.Result      `json:"result" jsonschema_description:"Validation outcome"`
	Report progression.Report `json:"report" jsonschema_description:"Progression changes"`
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_modules",
		mcp.WithDescription("List the modules of the course in play order."),
		mcp.WithOutputSchema[CatalogResult](),
	), s.handleListModules)

	s.mcpServer.AddTool(mcp.NewTool("get_progress",
		mcp.WithDescription("Return the progress document of a learner."),
		mcp.WithInputSchema[ProfileInput](),
	), s.handleGetProgress)

	s.mcpServer.AddTool(mcp.NewTool("initialize_progress",
		mcp.WithDescription("Reconcile a learner's progression with the catalog and unlock what is reachable."),
		mcp.WithInputSchema[ProfileInput](),
		mcp.WithOutputSchema[UnlockResult](),
	), s.handleInitialize)

	s.mcpServer.AddTool(mcp.NewTool("enter_module",
		mcp.WithDescription("Make a module the learner's active module. Fails if it is locked or another module is active."),
		mcp.WithInputSchema[ModuleInput](),
	), s.handleEnter)

	s.mcpServer.AddTool(mcp.NewTool("leave_module",
		mcp.WithDescription("Clear the learner's active module."),
		mcp.WithInputSchema[ProfileInput](),
	), s.handleLeave)

	s.mcpServer.AddTool(mcp.NewTool("unlock",
		mcp.WithDescription("Try to unlock a module or interactable, optionally with a password."),
		mcp.WithInputSchema[UnlockInput](),
		mcp.WithOutputSchema[UnlockResult](),
	), s.handleUnlock)

	s.mcpServer.AddTool(mcp.NewTool("submit_task",
		mcp.WithDescription("Submit an answer for a task. A rejected answer is not an error; inspect result.ok."),
		mcp.WithInputSchema[SubmitInput](),
		mcp.WithOutputSchema[SubmitResult](),
	), s.handleSubmit)

	s.mcpServer.AddTool(mcp.NewTool("converse",
		mcp.WithDescription("Open, resume or advance a dialogue. Pass back tree, interactable and node from the previous result with a choice key."),
		mcp.WithInputSchema[ConverseInput](),
		mcp.WithOutputSchema[lessonweave.Snapshot](),
	), s.handleConverse)
}

func (s *Server) handleListModules(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	modules, err := s.engine.Modules(ctx)
	if err != nil {
		return toolError("list modules failed", err), nil
	}
	out := CatalogResult{Modules: make([]domain.Manifest, 0, len(modules))}
	for _, m := range modules {
		out.Modules = append(out.Modules, m.Manifest)
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (s *Server) handleGetProgress(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ProfileInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	p, err := s.engine.Session(input.Profile).Progress(ctx)
	if err != nil {
		return toolError("get progress failed", err), nil
	}
	return jsonResult(p)
}

func (s *Server) handleInitialize(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ProfileInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	unlocked, err := s.engine.Session(input.Profile).Initialize(ctx)
	if err != nil {
		return toolError("initialize failed", err), nil
	}
	return mcp.NewToolResultStructuredOnly(UnlockResult{Success: true, Unlocked: nonNil(unlocked)}), nil
}

func (s *Server) handleEnter(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ModuleInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if input.Module == "" {
		return mcp.NewToolResultError("module is required"), nil
	}
	mp, err := s.engine.Session(input.Profile).Enter(ctx, input.Module)
	if err != nil {
		return toolError("enter failed", err), nil
	}
	return jsonResult(mp)
}

func (s *Server) handleLeave(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ProfileInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if err := s.engine.Session(input.Profile).Leave(ctx); err != nil {
		return toolError("leave failed", err), nil
	}
	return mcp.NewToolResultText("left the active module"), nil
}

func (s *Server) handleUnlock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input UnlockInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	ok, err := s.engine.Session(input.Profile).Unlock(ctx, input.Module, input.Interactable, input.Password)
	if err != nil {
		return toolError("unlock failed", err), nil
	}
	out := UnlockResult{Success: ok, Unlocked: []string{}}
	if ok {
		out.Unlocked = append(out.Unlocked, domain.SubjectKey(input.Module, input.Interactable))
	}
	return mcp.NewToolResultStructuredOnly(out), nil
}

func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input SubmitInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	result, report, err := s.engine.Session(input.Profile).SubmitTask(ctx, input.Module, input.Task, input.Submission)
	if err != nil {
		s.logger.Warn("mcp submission rejected", "module", input.Module, "task", input.Task, "err", err)
		return toolError("submit failed", err), nil
	}
	return mcp.NewToolResultStructuredOnly(SubmitResult{Result: result, Report: report}), nil
}

func (s *Server) handleConverse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var input ConverseInput
	if err := bind(request, &input); err != nil {
		return mcp.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	snap, err := s.engine.Session(input.Profile).Converse(ctx, input.Module, input.Turn)
	if err != nil {
		return toolError("converse failed", err), nil
	}
	return mcp.NewToolResultStructuredOnly(snap), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(catalogURI, "Course catalog",
		mcp.WithResourceDescription("Modules in play order with their manifests."),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		modules, err := s.engine.Modules(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		manifests := make([]domain.Manifest, 0, len(modules))
		for _, m := range modules {
			manifests = append(manifests, m.Manifest)
		}
		data, err := json.Marshal(manifests)
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: catalogURI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})

	s.mcpServer.AddResource(mcp.NewResource(catalogURI+"/graph", "Unlock graph",
		mcp.WithResourceDescription("Module unlock dependencies as a Mermaid diagram."),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		modules, err := s.engine.Modules(ctx)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: catalogURI + "/graph", MIMEType: "text/plain", Text: graph.GenerateCatalog(modules)},
		}, nil
	})
}

// -- Helpers --

func bind(request mcp.CallToolRequest, v any) error {
	if err := request.BindArguments(v); err != nil {
		return err
	}
	if p, ok := v.(interface{ profile() string }); ok && p.profile() == "" {
		return errors.New("profile is required")
	}
	return nil
}

func (i ProfileInput) profile() string  { return i.Profile }
func (i ModuleInput) profile() string   { return i.Profile }
func (i UnlockInput) profile() string   { return i.Profile }
func (i SubmitInput) profile() string   { return i.Profile }
func (i ConverseInput) profile() string { return i.Profile }

// toolError reports a failure to the agent, prefixed by the domain code when there is one.
func toolError(text string, err error) *mcp.CallToolResult {
	if code := domain.CodeOf(err); code != "" {
		text = fmt.Sprintf("%s (%s)", text, code)
	}
	return mcp.NewToolResultErrorFromErr(text, err)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(data)), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
