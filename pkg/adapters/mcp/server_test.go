package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/logging"
	"github.com/aretw0/lessonweave/pkg/adapters/memory"
	"github.com/aretw0/lessonweave/pkg/content"
	"github.com/aretw0/lessonweave/pkg/domain"
)

func newServer(t *testing.T) *Server {
	t.Helper()
	var modules []*domain.Module
	for _, name := range []string{"basics.md", "workshop.md"} {
		data, err := os.ReadFile(filepath.Join("..", "..", "..", "testdata", "course", name))
		require.NoError(t, err)
		m, err := content.NewDecoder().Parse(data)
		require.NoError(t, err)
		modules = append(modules, m)
	}
	loader, err := memory.NewLoader(modules...)
	require.NoError(t, err)
	eng, err := lessonweave.New("", lessonweave.WithLoader(loader), lessonweave.WithLogger(logging.NewNop()))
	require.NoError(t, err)
	return NewServer(eng, logging.NewNop())
}

// call builds a tool request with arguments.
func call(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func text(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	tc, ok := mcp.AsTextContent(result.Content[0])
	require.True(t, ok)
	return tc.Text
}

func TestNewServer(t *testing.T) {
	s := newServer(t)
	require.NotNil(t, s.MCPServer())

	tools := s.MCPServer().ListTools()
	for _, name := range []string{"list_modules", "get_progress", "initialize_progress", "enter_module", "leave_module", "unlock", "submit_task", "converse"} {
		assert.Contains(t, tools, name)
	}
}

func TestListModules(t *testing.T) {
	s := newServer(t)
	result, err := s.handleListModules(context.Background(), call("list_modules", nil))
	require.NoError(t, err)
	require.False(t, result.IsError)

	catalog, ok := result.StructuredContent.(CatalogResult)
	require.True(t, ok)
	require.Len(t, catalog.Modules, 2)
	assert.Equal(t, "basics", catalog.Modules[0].ID)
}

func TestCourseFlow(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	result, err := s.handleInitialize(ctx, call("initialize_progress", map[string]any{"profile": "ada"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, result.StructuredContent.(UnlockResult).Unlocked, "basics")

	t.Run("Locked module is refused", func(t *testing.T) {
		result, err := s.handleEnter(ctx, call("enter_module", map[string]any{"profile": "ada", "module": "workshop"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, text(t, result), "MODULE_LOCKED")
	})

	result, err = s.handleEnter(ctx, call("enter_module", map[string]any{"profile": "ada", "module": "basics"}))
	require.NoError(t, err)
	require.False(t, result.IsError, text(t, result))
	var mp domain.ModuleProgress
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &mp))
	assert.Equal(t, "basics", mp.ModuleID)

	result, err = s.handleConverse(ctx, call("converse", map[string]any{"profile": "ada", "module": "basics", "interactable": "mentor"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	snap := result.StructuredContent.(lessonweave.Snapshot)
	assert.Equal(t, "start", snap.Node)

	result, err = s.handleConverse(ctx, call("converse", map[string]any{
		"profile": "ada", "module": "basics", "interactable": "mentor", "node": snap.Node, "choice": "go",
	}))
	require.NoError(t, err)
	assert.Equal(t, "tip", result.StructuredContent.(lessonweave.Snapshot).Node)

	result, err = s.handleSubmit(ctx, call("submit_task", map[string]any{"profile": "ada", "module": "basics", "task": "hello", "submission": "hi"}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	submitted := result.StructuredContent.(SubmitResult)
	assert.True(t, submitted.Result.OK)
	assert.True(t, submitted.Report.ModuleCompleted)

	result, err = s.handleLeave(ctx, call("leave_module", map[string]any{"profile": "ada"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	result, err = s.handleGetProgress(ctx, call("get_progress", map[string]any{"profile": "ada"}))
	require.NoError(t, err)
	var p domain.Progress
	require.NoError(t, json.Unmarshal([]byte(text(t, result)), &p))
	assert.Equal(t, domain.StateCompleted, p.StateOf("basics"))
	assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop"))
}

func TestUnlock(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	result, err := s.handleUnlock(ctx, call("unlock", map[string]any{"profile": "bob", "module": "workshop", "password": "nope"}))
	require.NoError(t, err)
	assert.False(t, result.StructuredContent.(UnlockResult).Success)

	result, err = s.handleUnlock(ctx, call("unlock", map[string]any{"profile": "bob", "module": "workshop", "password": "abc123"}))
	require.NoError(t, err)
	out := result.StructuredContent.(UnlockResult)
	assert.True(t, out.Success)
	assert.Equal(t, []string{"workshop"}, out.Unlocked)
}

func TestToolErrors(t *testing.T) {
	s := newServer(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)
		args    map[string]any
		want    string
	}{
		{name: "missing profile", handler: s.handleGetProgress, args: map[string]any{}, want: "profile is required"},
		{name: "missing module", handler: s.handleEnter, args: map[string]any{"profile": "p"}, want: "module is required"},
		{name: "unknown task", handler: s.handleSubmit, args: map[string]any{"profile": "p", "module": "basics", "task": "nope", "submission": "x"}, want: "TASK_NOT_FOUND"},
		{name: "unknown dialogue", handler: s.handleConverse, args: map[string]any{"profile": "p", "module": "basics", "tree": "nope"}, want: "DIALOGUE_NOT_FOUND"},
		{name: "bad argument type", handler: s.handleSubmit, args: map[string]any{"profile": "p", "submission": 42}, want: "invalid arguments"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.handler(ctx, call("tool", tt.args))
			require.NoError(t, err)
			require.True(t, result.IsError)
			assert.Contains(t, text(t, result), tt.want)
		})
	}
}
