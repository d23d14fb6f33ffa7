package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/internal/runtime"
	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/registry"
)

func TestProcessActions_Sequential(t *testing.T) {
	reg := registry.NewRegistry()
	var calls []string
	reg.Register("log", func(_ context.Context, dc *domain.Context, args map[string]any) error {
		calls = append(calls, args["msg"].(string))
		return nil
	})
	engine := runtime.NewEngine(runtime.WithRegistry(reg))
	dc := newContext("A")
	dc.InteractableID = "npc"

	sig, err := engine.ProcessActions(context.Background(), dc,
		domain.AcceptTask("t1"),
		domain.SetModuleState("door", "open"),
		domain.SetInteractableState("", "mood", "happy"),
		domain.CallFunction("log", map[string]any{"msg": "hi"}),
		domain.NoAction(),
		domain.GoTo("next"),
	)
	require.NoError(t, err)

	m := dc.Module()
	assert.Equal(t, "t1", m.CurrentTaskID)
	v, _ := m.ModuleValue("door")
	assert.Equal(t, "open", v)
	v, _ = m.InteractableValue("npc", "mood")
	assert.Equal(t, "happy", v)
	assert.Equal(t, []string{"hi"}, calls)
	assert.Equal(t, runtime.Signals{GoTo: "next"}, sig)
}

func TestProcessActions_SingleAction(t *testing.T) {
	engine := runtime.NewEngine()
	sig, err := engine.ProcessActions(context.Background(), newContext("A"), domain.Close())
	require.NoError(t, err)
	assert.True(t, sig.Close)
}

func TestProcessActions_AcceptCompletedTaskIsNoop(t *testing.T) {
	engine := runtime.NewEngine()
	dc := newContext("A")
	dc.Module().CompleteTask("t1")

	_, err := engine.ProcessActions(context.Background(), dc, domain.AcceptTask("t1"))
	require.NoError(t, err)
	assert.Empty(t, dc.Module().CurrentTaskID)
}

func TestProcessActions_AcceptIsIdempotent(t *testing.T) {
	engine := runtime.NewEngine()
	dc := newContext("A")

	for range 2 {
		_, err := engine.ProcessActions(context.Background(), dc, domain.AcceptTask("t1"))
		require.NoError(t, err)
	}
	assert.Equal(t, "t1", dc.Module().CurrentTaskID)
}

func TestProcessActions_ErrorStopsWithoutRollback(t *testing.T) {
	engine := runtime.NewEngine()
	dc := newContext("A")
	boom := errors.New("boom")
	ran := false

	_, err := engine.ProcessActions(context.Background(), dc,
		domain.SetModuleState("first", 1),
		domain.CallFunc("explode", func(context.Context, *domain.Context, map[string]any) error { return boom }),
		domain.CallFunc("after", func(context.Context, *domain.Context, map[string]any) error {
			ran = true
			return nil
		}),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)

	v, ok := dc.Module().ModuleValue("first")
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestProcessActions_UnknownHandler(t *testing.T) {
	engine := runtime.NewEngine()
	_, err := engine.ProcessActions(context.Background(), newContext("A"), domain.CallFunction("ghost", nil))
	assert.ErrorIs(t, err, domain.ErrHandlerNotFound)
}

func TestProcessActions_NoProgress(t *testing.T) {
	engine := runtime.NewEngine()
	_, err := engine.ProcessActions(context.Background(), &domain.Context{ModuleID: "A"}, domain.AcceptTask("t1"))
	assert.ErrorIs(t, err, runtime.ErrNoProgress)
}

func TestProcessActions_OtherModuleState(t *testing.T) {
	engine := runtime.NewEngine()
	dc := newContext("A")
	action := domain.SetModuleState("seen", true)
	action.Module = "B"

	_, err := engine.ProcessActions(context.Background(), dc, action)
	require.NoError(t, err)

	b, ok := dc.Progress.Module("B")
	require.True(t, ok)
	v, _ := b.ModuleValue("seen")
	assert.Equal(t, true, v)
}
