package http_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave"
	lwhttp "github.com/aretw0/lessonweave/pkg/adapters/http"
	"github.com/aretw0/lessonweave/pkg/adapters/memory"
	"github.com/aretw0/lessonweave/pkg/content"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/observability"
)

func newEngine(t *testing.T, opts ...lessonweave.Option) *lessonweave.Engine {
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
	eng, err := lessonweave.New("", append([]lessonweave.Option{lessonweave.WithLoader(loader)}, opts...)...)
	require.NoError(t, err)
	return eng
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCatalog(t *testing.T) {
	h := lwhttp.NewHandler(newEngine(t))

	t.Run("Health", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("Info", func(t *testing.T) {
		info := decode[map[string]string](t, do(t, h, http.MethodGet, "/info", nil))
		assert.Equal(t, strings.TrimSpace(lessonweave.Version), info["version"])
	})

	t.Run("Modules in order", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/modules", nil)
		require.Equal(t, http.StatusOK, w.Code)
		manifests := decode[[]domain.Manifest](t, w)
		require.Len(t, manifests, 2)
		assert.Equal(t, "basics", manifests[0].ID)
		assert.Equal(t, "workshop", manifests[1].ID)
	})

	t.Run("Module", func(t *testing.T) {
		view := decode[lwhttp.ModuleView](t, do(t, h, http.MethodGet, "/modules/workshop", nil))
		assert.Equal(t, "The Workshop", view.Title)
		assert.True(t, view.Gated)
		assert.Equal(t, []string{"tinkerer"}, view.Dialogues)
		assert.Len(t, view.Tasks, 2)
	})

	t.Run("Unknown module", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/modules/nope", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "MODULE_NOT_FOUND", decode[lwhttp.ErrorResponse](t, w).Code)
	})

	t.Run("Graphs", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/modules/graph", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "graph LR")

		w = do(t, h, http.MethodGet, "/modules/workshop/dialogues/tinkerer/graph", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "graph TD")

		w = do(t, h, http.MethodGet, "/modules/workshop/dialogues/nope/graph", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestProgressionFlow(t *testing.T) {
	h := lwhttp.NewHandler(newEngine(t))
	const base = "/profiles/ada"

	w := do(t, h, http.MethodPost, base+"/initialize", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[lwhttp.UnlockedResponse](t, w).Unlocked, "basics")

	w = do(t, h, http.MethodPost, base+"/enter", lwhttp.EnterRequest{Module: "workshop"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "MODULE_LOCKED", decode[lwhttp.ErrorResponse](t, w).Code)

	w = do(t, h, http.MethodPost, base+"/enter", lwhttp.EnterRequest{Module: "basics"})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, base+"/enter", lwhttp.EnterRequest{Module: "workshop"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, http.MethodPost, base+"/modules/basics/tasks/hello/submit", lwhttp.SubmitRequest{Submission: "   "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decode[lwhttp.SubmitResponse](t, w).Result.OK)

	w = do(t, h, http.MethodPost, base+"/modules/basics/tasks/hello/submit", lwhttp.SubmitRequest{Submission: "hello"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[lwhttp.SubmitResponse](t, w)
	assert.True(t, resp.Result.OK)
	assert.True(t, resp.Report.ModuleCompleted)
	assert.Contains(t, resp.Report.Unlocked, "workshop")
	require.NotNil(t, resp.Diff)
	assert.Equal(t, domain.StateCompleted, resp.Diff.Progression["basics"])
	assert.Equal(t, domain.StateUnlocked, resp.Diff.Progression["workshop"])
	assert.Contains(t, resp.Diff.Modules, "basics")

	w = do(t, h, http.MethodPost, base+"/leave", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, http.MethodGet, base+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[domain.Progress](t, w)
	assert.Empty(t, p.ActiveModule)
	assert.Equal(t, domain.StateCompleted, p.StateOf("basics"))
	assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop"))

	w = do(t, h, http.MethodPost, base+"/modules/basics/tasks/missing/submit", lwhttp.SubmitRequest{Submission: "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodDelete, base+"/modules/basics", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	p = decode[domain.Progress](t, do(t, h, http.MethodGet, base+"/progress", nil))
	assert.Equal(t, domain.StateLocked, p.StateOf("basics"))
}

func TestUnlock(t *testing.T) {
	h := lwhttp.NewHandler(newEngine(t))
	const base = "/profiles/bob/modules/workshop/unlock"

	check := decode[domain.UnlockCheck](t, do(t, h, http.MethodGet, base, nil))
	assert.False(t, check.CanUnlock)
	assert.True(t, check.RequiresInteraction)

	w := do(t, h, http.MethodPost, base, lwhttp.UnlockRequest{Password: "wrong"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, *decode[lwhttp.UnlockedResponse](t, w).Success)

	w = do(t, h, http.MethodPost, base, lwhttp.UnlockRequest{Password: "abc123"})
	require.Equal(t, http.StatusOK, w.Code)
	resp := decode[lwhttp.UnlockedResponse](t, w)
	assert.True(t, *resp.Success)
	assert.Equal(t, []string{"workshop"}, resp.Unlocked)

	w = do(t, h, http.MethodGet, base+"?interactable=ghost", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConverse(t *testing.T) {
	h := lwhttp.NewHandler(newEngine(t))
	const path = "/profiles/cy/modules/basics/dialogue"

	w := do(t, h, http.MethodPost, "/profiles/cy/initialize", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodPost, path, lessonweave.Turn{Interactable: "mentor"})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[lessonweave.Snapshot](t, w)
	assert.Equal(t, "mentor", snap.Tree)
	assert.Equal(t, "start", snap.Node)
	require.Len(t, snap.Choices, 1)
	assert.Equal(t, "go", snap.Choices[0].Key)
	assert.Empty(t, snap.Choices[0].Actions)

	w = do(t, h, http.MethodPost, path, lessonweave.Turn{Interactable: "mentor", Node: snap.Node, Choice: "go"})
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[lessonweave.Snapshot](t, w)
	assert.Equal(t, "tip", snap.Node)

	w = do(t, h, http.MethodPost, path, lessonweave.Turn{Tree: "mentor", Node: "tip", Advance: true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[lessonweave.Snapshot](t, w).Closed)

	t.Run("Errors", func(t *testing.T) {
		w := do(t, h, http.MethodPost, path, lessonweave.Turn{Tree: "mentor", Node: "start", Choice: "nope"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "DIALOGUE_INVALID_REFERENCE", decode[lwhttp.ErrorResponse](t, w).Code)

		w = do(t, h, http.MethodPost, path, lessonweave.Turn{})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{"))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "INVALID_REQUEST", decode[lwhttp.ErrorResponse](t, rec).Code)

		w = do(t, h, http.MethodPost, "/profiles/cy/modules/workshop/dialogue", lessonweave.Turn{Interactable: "tinkerer"})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestMetrics(t *testing.T) {
	metrics := observability.NewMetrics(nil)
	eng := newEngine(t, lessonweave.WithLifecycleHooks(metrics.Hooks()))
	h := lwhttp.NewHandler(eng, lwhttp.WithMetrics(metrics))

	do(t, h, http.MethodPost, "/profiles/dee/initialize", nil)
	do(t, h, http.MethodPost, "/profiles/dee/modules/basics/tasks/hello/submit", lwhttp.SubmitRequest{Submission: "hi"})

	w := do(t, h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `lessonweave_tasks_completed_total{module="basics"} 1`)
}

func TestSubscribeProfile(t *testing.T) {
	streams := lwhttp.NewStreamManager(nil)
	eng := newEngine(t, lessonweave.WithLifecycleHooks(streams.Hooks()))
	srv := httptest.NewServer(lwhttp.NewHandler(eng, lwhttp.WithStreams(streams)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/profiles/eve/events?types=task_completed", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	require.Equal(t, "event: ping", <-lines)

	body := strings.NewReader(`{"submission":"hi"}`)
	post, err := http.Post(srv.URL+"/profiles/eve/modules/basics/tasks/hello/submit", "application/json", body)
	require.NoError(t, err)
	post.Body.Close()
	require.Equal(t, http.StatusOK, post.StatusCode)

	for line := range lines {
		if !strings.HasPrefix(line, "data: {") {
			continue
		}
		var event domain.TaskEvent
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
		assert.Equal(t, domain.EventTaskCompleted, event.Type)
		assert.Equal(t, "hello", event.TaskID)
		return
	}
	t.Fatal("stream closed before the task event arrived")
}

func TestStreamManager(t *testing.T) {
	sm := lwhttp.NewStreamManager(nil)
	ch, cancel := sm.Subscribe("p1")

	sm.Broadcast("p1", "one")
	sm.Broadcast("p2", "ignored")
	assert.Equal(t, "one", <-ch)

	for i := 0; i < 20; i++ {
		sm.Broadcast("p1", "flood")
	}
	cancel()
	cancel()

	n := 0
	for range ch {
		n++
	}
	assert.Equal(t, 10, n, "buffer keeps the first messages and drops the rest")
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, lwhttp.StatusOf(domain.ErrProfileNotFound))
	assert.Equal(t, http.StatusNotFound, lwhttp.StatusOf(domain.ErrTaskNotFound))
	assert.Equal(t, http.StatusInternalServerError, lwhttp.StatusOf(assert.AnError))
}
