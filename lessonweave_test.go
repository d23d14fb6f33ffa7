package lessonweave_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave"
	"github.com/aretw0/lessonweave/internal/progression"
	"github.com/aretw0/lessonweave/internal/runtime"
	"github.com/aretw0/lessonweave/pkg/adapters/memory"
	"github.com/aretw0/lessonweave/pkg/content"
	"github.com/aretw0/lessonweave/pkg/domain"
)

func loadCourse(t *testing.T) *memory.Loader {
	t.Helper()
	decoder := content.NewDecoder()
	var modules []*domain.Module
	for _, name := range []string{"basics.md", "workshop.md"} {
		data, err := os.ReadFile(filepath.Join("testdata", "course", name))
		require.NoError(t, err)
		m, err := decoder.Parse(data)
		require.NoError(t, err)
		modules = append(modules, m)
	}
	loader, err := memory.NewLoader(modules...)
	require.NoError(t, err)
	return loader
}

func newEngine(t *testing.T, opts ...lessonweave.Option) *lessonweave.Engine {
	t.Helper()
	opts = append([]lessonweave.Option{lessonweave.WithLoader(loadCourse(t))}, opts...)
	eng, err := lessonweave.New("", opts...)
	require.NoError(t, err)
	return eng
}

func lines(c *lessonweave.Conversation) string {
	return strings.Join(c.Node().Lines, " ")
}

func keys(c *lessonweave.Conversation) []string {
	out := make([]string, 0, len(c.Choices()))
	for _, ch := range c.Choices() {
		out = append(out, ch.Key)
	}
	return out
}

func TestNew_RequiresContentOrLoader(t *testing.T) {
	_, err := lessonweave.New("")
	assert.Error(t, err)
}

func TestNew_LoamContent(t *testing.T) {
	eng, err := lessonweave.New("testdata/course")
	require.NoError(t, err)
	assert.Equal(t, "course", eng.Name)

	modules, err := eng.Modules(context.Background())
	require.NoError(t, err)
	require.Len(t, modules, 2)
	assert.Equal(t, "basics", modules[0].ID())
	assert.Equal(t, "workshop", modules[1].ID())
	assert.Equal(t, "Everything starts here.", modules[0].Background)
}

func TestEngine_Module_NotFound(t *testing.T) {
	eng := newEngine(t)
	_, err := eng.Module(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrModuleNotFound)
}

func TestSession_ProgressionFlow(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	s := eng.Session("learner")

	unlocked, err := s.Initialize(ctx)
	require.NoError(t, err)
	assert.Contains(t, unlocked, "basics")
	assert.Contains(t, unlocked, "basics/mentor")
	assert.NotContains(t, unlocked, "workshop")

	t.Run("Locked module is refused", func(t *testing.T) {
		_, err := s.Enter(ctx, "workshop")
		assert.ErrorIs(t, err, domain.ErrModuleLocked)
	})

	t.Run("Enter creates module progress", func(t *testing.T) {
		mp, err := s.Enter(ctx, "basics")
		require.NoError(t, err)
		assert.Equal(t, "basics", mp.ModuleID)

		p, err := s.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, "basics", p.ActiveModule)
	})

	t.Run("Empty submission fails without error", func(t *testing.T) {
		result, report, err := s.SubmitTask(ctx, "basics", "hello", "   ")
		require.NoError(t, err)
		assert.False(t, result.OK)
		assert.Equal(t, "empty", result.Reason)
		assert.False(t, report.TaskCompleted)
	})

	t.Run("Completing the last task propagates", func(t *testing.T) {
		result, report, err := s.SubmitTask(ctx, "basics", "hello", "hi")
		require.NoError(t, err)
		assert.True(t, result.OK)
		assert.True(t, report.TaskCompleted)
		assert.True(t, report.ModuleCompleted)
		assert.Contains(t, report.Unlocked, "workshop")

		p, err := s.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, p.StateOf("basics"))
		assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop"))
	})

	t.Run("Another active module blocks entry", func(t *testing.T) {
		_, err := s.Enter(ctx, "workshop")
		assert.ErrorIs(t, err, domain.ErrModuleAlreadyActive)

		require.NoError(t, s.Leave(ctx))
		_, err = s.Enter(ctx, "workshop")
		assert.NoError(t, err)
	})

	t.Run("Reset relocks", func(t *testing.T) {
		require.NoError(t, s.Reset(ctx, "workshop"))
		p, err := s.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StateLocked, p.StateOf("workshop"))
		_, ok := p.Module("workshop")
		assert.False(t, ok)
		assert.Empty(t, p.ActiveModule)
	})
}

func TestSession_PasswordUnlock(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	s := eng.Session("guest")
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	check, err := s.CanUnlock(ctx, "workshop", "")
	require.NoError(t, err)
	assert.False(t, check.CanUnlock)
	assert.True(t, check.RequiresInteraction)

	ok, err := s.Unlock(ctx, "workshop", "", "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.Unlock(ctx, "workshop", "", "abc123")
	require.NoError(t, err)
	assert.True(t, ok)

	p, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop"))
	assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop/tinkerer"))
	assert.Equal(t, domain.StateLocked, p.StateOf("workshop/cabinet"))

	t.Run("Initialize relocks password unlocks", func(t *testing.T) {
		_, err := s.Initialize(ctx)
		require.NoError(t, err)
		p, err := s.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StateLocked, p.StateOf("workshop"))
	})

	t.Run("Initialize keeps password unlocks when asked", func(t *testing.T) {
		eng := newEngine(t, lessonweave.WithKeepPasswordUnlocks(true))
		s := eng.Session("keeper")
		_, err := s.Initialize(ctx)
		require.NoError(t, err)
		_, err = s.Unlock(ctx, "workshop", "", "abc123")
		require.NoError(t, err)
		_, err = s.Initialize(ctx)
		require.NoError(t, err)
		p, err := s.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop"))
	})

	t.Run("Unknown interactable", func(t *testing.T) {
		_, err := s.Unlock(ctx, "workshop", "ghost", "")
		assert.ErrorIs(t, err, domain.ErrModuleInvalidStructure)
	})
}

func TestSession_SubmitTaskErrors(t *testing.T) {
	eng := newEngine(t, lessonweave.WithMaxSubmission(8))
	ctx := context.Background()
	s := eng.Session("learner")

	_, _, err := s.SubmitTask(ctx, "basics", "missing", "hi")
	assert.ErrorIs(t, err, domain.ErrTaskNotFound)

	_, _, err = s.SubmitTask(ctx, "nope", "hello", "hi")
	assert.ErrorIs(t, err, domain.ErrModuleNotFound)

	result, _, err := s.SubmitTask(ctx, "basics", "hello", "far too long")
	assert.ErrorIs(t, err, domain.ErrTaskInvalidSubmission)
	assert.Equal(t, "too_long", result.Reason)
}

func TestConversation_Tinkerer(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	s := eng.Session("learner")
	_, err := s.Initialize(ctx)
	require.NoError(t, err)
	_, err = s.Unlock(ctx, "workshop", "", "abc123")
	require.NoError(t, err)

	conv, err := s.TalkTo(ctx, "workshop", "tinkerer")
	require.NoError(t, err)
	assert.Equal(t, "hello", conv.Node().ID)
	assert.Equal(t, []string{"accept", "bye"}, keys(conv), "secret stays hidden until asked")

	require.NoError(t, conv.Choose(ctx, "accept"))
	assert.Equal(t, "details", conv.Node().ID)
	assert.Empty(t, conv.Choices())

	require.NoError(t, conv.Advance(ctx))
	assert.Equal(t, "hello", conv.Node().ID)
	assert.Equal(t, []string{"accept", "secret", "bye"}, keys(conv))

	p, err := s.Progress(ctx)
	require.NoError(t, err)
	mp, ok := p.Module("workshop")
	require.True(t, ok)
	assert.Equal(t, "lamp", mp.CurrentTaskID)

	require.NoError(t, conv.Choose(ctx, "secret"))
	assert.True(t, conv.Closed())
	assert.True(t, conv.Signals().Close)

	t.Run("Active task opens on the ready screen", func(t *testing.T) {
		conv, err := s.TalkTo(ctx, "workshop", "tinkerer")
		require.NoError(t, err)
		assert.Equal(t, runtime.TaskReadyNodeID("lamp"), conv.Node().ID)
		assert.Contains(t, lines(conv), `"Fix the lamp"`)
		assert.Equal(t, []string{runtime.ChoiceBegin, runtime.ChoiceLater}, keys(conv))

		require.NoError(t, conv.Choose(ctx, runtime.ChoiceBegin))
		assert.True(t, conv.Closed())
	})

	t.Run("Completed task opens on the complete screen", func(t *testing.T) {
		result, _, err := s.SubmitTask(ctx, "workshop", "lamp", "I replaced the bulb.")
		require.NoError(t, err)
		require.True(t, result.OK, result.Message)

		conv, err := s.TalkTo(ctx, "workshop", "tinkerer")
		require.NoError(t, err)
		assert.Equal(t, runtime.TaskCompleteNodeID("lamp"), conv.Node().ID)
		require.NoError(t, conv.Choose(ctx, runtime.ChoiceDone))
		assert.True(t, conv.Closed())

		p, err := s.Progress(ctx)
		require.NoError(t, err)
		assert.Equal(t, domain.StateUnlocked, p.StateOf("workshop/cabinet"))
	})
}

func TestConversation_Errors(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	s := eng.Session("learner")

	t.Run("Locked interactable", func(t *testing.T) {
		_, err := s.TalkTo(ctx, "workshop", "tinkerer")
		assert.ErrorIs(t, err, domain.ErrModuleLocked)
	})

	t.Run("Interactable without dialogue", func(t *testing.T) {
		_, err := s.TalkTo(ctx, "workshop", "cabinet")
		assert.ErrorIs(t, err, domain.ErrDialogueNotFound)
	})

	t.Run("Unknown tree", func(t *testing.T) {
		_, err := s.StartDialogue(ctx, "basics", "nope")
		assert.ErrorIs(t, err, domain.ErrDialogueNotFound)
	})

	t.Run("Unknown resume node", func(t *testing.T) {
		_, err := s.ResumeDialogue(ctx, "basics", "mentor", "nope")
		assert.ErrorIs(t, err, domain.ErrDialogueInvalidReference)
	})

	t.Run("Unavailable choice", func(t *testing.T) {
		conv, err := s.StartDialogue(ctx, "basics", "mentor")
		require.NoError(t, err)
		err = conv.Choose(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrDialogueInvalidReference)
		assert.Equal(t, "start", conv.Node().ID)
	})

	t.Run("Resume then close", func(t *testing.T) {
		conv, err := s.ResumeDialogue(ctx, "basics", "mentor", "tip")
		require.NoError(t, err)
		assert.Equal(t, "tip", conv.Node().ID)
		require.NoError(t, conv.Advance(ctx))
		assert.True(t, conv.Closed())
		assert.Error(t, conv.Choose(ctx, "go"))
	})
}

func TestEngine_Hooks(t *testing.T) {
	var mu sync.Mutex
	events := map[domain.EventType]int{}
	record := func(t domain.EventType) {
		mu.Lock()
		defer mu.Unlock()
		events[t]++
	}

	eng := newEngine(t, lessonweave.WithLifecycleHooks(domain.LifecycleHooks{
		OnNodeEnter:       func(_ context.Context, e *domain.DialogueEvent) { record(e.Type) },
		OnChoice:          func(_ context.Context, e *domain.DialogueEvent) { record(e.Type) },
		OnTaskValidated:   func(_ context.Context, e *domain.TaskEvent) { record(e.Type) },
		OnTaskCompleted:   func(_ context.Context, e *domain.TaskEvent) { record(e.Type) },
		OnModuleCompleted: func(_ context.Context, e *domain.ProgressionEvent) { record(e.Type) },
		OnUnlock:          func(_ context.Context, e *domain.ProgressionEvent) { record(e.Type) },
	}))
	ctx := context.Background()
	s := eng.Session("learner")
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	conv, err := s.StartDialogue(ctx, "basics", "mentor")
	require.NoError(t, err)
	require.NoError(t, conv.Choose(ctx, "go"))

	_, _, err = s.SubmitTask(ctx, "basics", "hello", "hi")
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 2, events[domain.EventNodeEnter])
	assert.Equal(t, 1, events[domain.EventChoice])
	assert.Equal(t, 1, events[domain.EventTaskValidated])
	assert.Equal(t, 1, events[domain.EventTaskCompleted])
	assert.Equal(t, 1, events[domain.EventModuleCompleted])
	assert.GreaterOrEqual(t, events[domain.EventUnlock], 3)
}

func TestEngine_FailingHandlerStillNavigates(t *testing.T) {
	loader := loadCourse(t)
	eng, err := lessonweave.New("",
		lessonweave.WithLoader(loader),
		lessonweave.WithHandler(runtime.OpenTaskHandler, func(context.Context, *domain.Context, map[string]any) error {
			return assert.AnError
		}),
	)
	require.NoError(t, err)
	ctx := context.Background()
	s := eng.Session("learner")
	_, err = s.Initialize(ctx)
	require.NoError(t, err)
	_, err = s.Unlock(ctx, "workshop", "", "abc123")
	require.NoError(t, err)
	require.NoError(t, s.AcceptTask(ctx, "workshop", "lamp"))

	conv, err := s.TalkTo(ctx, "workshop", "tinkerer")
	require.NoError(t, err)
	require.Equal(t, runtime.TaskReadyNodeID("lamp"), conv.Node().ID)

	require.NoError(t, conv.Choose(ctx, runtime.ChoiceBegin))
	assert.True(t, conv.Closed())

	p, err := s.Progress(ctx)
	require.NoError(t, err)
	mp, ok := p.Module("workshop")
	require.True(t, ok)
	assert.Equal(t, "lamp", mp.CurrentTaskID)
}

func TestSession_Converse(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	s := eng.Session("turns")
	_, err := s.Initialize(ctx)
	require.NoError(t, err)
	_, err = s.Unlock(ctx, "workshop", "", "abc123")
	require.NoError(t, err)

	snap, err := s.Converse(ctx, "workshop", lessonweave.Turn{Interactable: "tinkerer"})
	require.NoError(t, err)
	assert.Equal(t, "tinkerer", snap.Tree)
	assert.Equal(t, "hello", snap.Node)
	assert.False(t, snap.Closed)
	require.Len(t, snap.Choices, 2)
	assert.Nil(t, snap.Choices[0].Actions, "actions are not exposed")

	snap, err = s.Converse(ctx, "workshop", lessonweave.Turn{Interactable: "tinkerer", Node: "hello", Choice: "accept"})
	require.NoError(t, err)
	assert.Equal(t, "details", snap.Node)
	assert.Equal(t, []string{"The bulb is broken."}, snap.Lines)

	snap, err = s.Converse(ctx, "workshop", lessonweave.Turn{Interactable: "tinkerer", Node: snap.Node, Advance: true})
	require.NoError(t, err)
	assert.Equal(t, "hello", snap.Node)
	assert.Len(t, snap.Choices, 3, "the interactable state set by accept is visible")

	snap, err = s.Converse(ctx, "workshop", lessonweave.Turn{Tree: "tinkerer", Node: "hello", Choice: "bye"})
	require.NoError(t, err)
	assert.True(t, snap.Closed)
	assert.Empty(t, snap.Node)

	t.Run("Errors", func(t *testing.T) {
		_, err := s.Converse(ctx, "workshop", lessonweave.Turn{})
		assert.ErrorIs(t, err, domain.ErrDialogueInvalidReference)

		_, err = s.Converse(ctx, "workshop", lessonweave.Turn{Interactable: "tinkerer", Node: "nowhere"})
		assert.ErrorIs(t, err, domain.ErrDialogueInvalidReference)

		_, err = s.Converse(ctx, "workshop", lessonweave.Turn{Interactable: "ghost"})
		assert.ErrorIs(t, err, domain.ErrDialogueNotFound)

		_, err = s.ResumeTalk(ctx, "workshop", "tinkerer", "")
		assert.ErrorIs(t, err, domain.ErrDialogueInvalidReference)
	})
}

func TestSession_LockedModuleRefusesWork(t *testing.T) {
	eng := newEngine(t)
	ctx := context.Background()
	s := eng.Session("intruder")
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	result, report, err := s.SubmitTask(ctx, "workshop", "lamp", "a new bulb here")
	assert.ErrorIs(t, err, domain.ErrModuleLocked)
	assert.False(t, result.OK)
	assert.Equal(t, progression.Report{}, report)

	_, _, err = s.SubmitTask(ctx, "workshop", "notes", "x")
	assert.ErrorIs(t, err, domain.ErrModuleLocked)

	assert.ErrorIs(t, s.AcceptTask(ctx, "workshop", "lamp"), domain.ErrModuleLocked)

	_, err = s.StartDialogue(ctx, "workshop", "tinkerer")
	assert.ErrorIs(t, err, domain.ErrModuleLocked)
	_, err = s.ResumeDialogue(ctx, "workshop", "tinkerer", "hello")
	assert.ErrorIs(t, err, domain.ErrModuleLocked)
	_, err = s.Converse(ctx, "workshop", lessonweave.Turn{Tree: "tinkerer"})
	assert.ErrorIs(t, err, domain.ErrModuleLocked)

	p, err := s.Progress(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StateLocked, p.StateOf("workshop"))
	_, ok := p.Module("workshop")
	assert.False(t, ok, "no module progress is created for a locked module")

	t.Run("Passive unlocks are applied first", func(t *testing.T) {
		fresh := eng.Session("newcomer")
		result, _, err := fresh.SubmitTask(ctx, "basics", "hello", "hi")
		require.NoError(t, err)
		assert.True(t, result.OK)
	})
}
