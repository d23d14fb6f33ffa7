package domain_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/pkg/domain"
)

func TestField(t *testing.T) {
	t.Run("Literal", func(t *testing.T) {
		f := domain.Literal("hello")
		assert.True(t, f.IsSet())
		assert.False(t, f.IsComputed())
		assert.Equal(t, "hello", f.Resolve(nil))
	})

	t.Run("Computed sees context on every call", func(t *testing.T) {
		f := domain.Computed(func(ctx *domain.Context) string {
			name, _ := ctx.Var("name")
			return fmt.Sprintf("hi %v", name)
		})
		ctx := &domain.Context{Vars: map[string]any{"name": "ana"}}
		assert.Equal(t, "hi ana", f.Resolve(ctx))

		ctx.Vars["name"] = "bo"
		assert.Equal(t, "hi bo", f.Resolve(ctx))
		assert.True(t, f.IsComputed())
	})

	t.Run("Zero is unset", func(t *testing.T) {
		var f domain.Field[[]string]
		assert.False(t, f.IsSet())
		assert.Nil(t, f.Resolve(nil))
		assert.False(t, domain.Computed[int](nil).IsSet())
	})
}

func TestProgress_Advance_IsMonotonic(t *testing.T) {
	p := domain.NewProgress("p1")
	assert.Equal(t, domain.StateLocked, p.StateOf("m"))

	assert.True(t, p.Advance("m", domain.StateUnlocked))
	assert.False(t, p.Advance("m", domain.StateUnlocked), "repeat unlock is a no-op")
	assert.True(t, p.Advance("m", domain.StateCompleted))
	assert.False(t, p.Advance("m", domain.StateUnlocked), "completed never regresses")
	assert.False(t, p.Advance("m", domain.StateLocked))
	assert.Equal(t, domain.StateCompleted, p.StateOf("m"))

	p.Reset("m")
	assert.Equal(t, domain.StateLocked, p.StateOf("m"))
}

func TestProgress_EnterCreatesOnce(t *testing.T) {
	p := domain.NewProgress("p1")
	m := p.Enter("intro")
	m.SetModuleValue("k", 1)
	assert.Same(t, m, p.Enter("intro"))

	_, ok := p.Module("other")
	assert.False(t, ok)
}

func TestModuleProgress_CompleteTask(t *testing.T) {
	m := domain.NewModuleProgress("intro")
	m.CurrentTaskID = "t1"

	assert.True(t, m.CompleteTask("t1"))
	assert.False(t, m.CompleteTask("t1"))
	assert.Equal(t, []string{"t1"}, m.CompletedTasks)
	assert.Empty(t, m.CurrentTaskID)
}

func TestModuleProgress_CloneIsDeep(t *testing.T) {
	m := domain.NewModuleProgress("intro")
	m.SetInteractableValue("door", "open", true)
	cp := m.Clone()
	cp.SetInteractableValue("door", "open", false)
	cp.CompleteTask("x")

	v, _ := m.InteractableValue("door", "open")
	assert.Equal(t, true, v)
	assert.Empty(t, m.CompletedTasks)
}

func TestContext_ModuleOf(t *testing.T) {
	var nilCtx *domain.Context
	assert.NotNil(t, nilCtx.ModuleOf("x"))

	p := domain.NewProgress("p1")
	p.Enter("a").CompleteTask("t")
	ctx := &domain.Context{ModuleID: "a", Progress: p}

	assert.True(t, ctx.Module().IsTaskComplete("t"))
	assert.False(t, ctx.ModuleOf("b").IsTaskComplete("t"))
	assert.Equal(t, "b", ctx.ModuleOf("b").ModuleID)
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("loading: %w", domain.Errorf(domain.CodeModuleNotFound, map[string]string{"module": "x"}, "module %q not found", "x"))
	assert.True(t, errors.Is(err, domain.ErrModuleNotFound))
	assert.False(t, errors.Is(err, domain.ErrTaskNotFound))
	assert.Equal(t, domain.CodeModuleNotFound, domain.CodeOf(err))

	cause := errors.New("disk")
	wrapped := domain.WrapError(domain.CodeModuleLoadFailed, "load failed", cause)
	assert.ErrorIs(t, wrapped, cause)
	assert.Contains(t, wrapped.Error(), "disk")
}

func TestSubjectKey(t *testing.T) {
	assert.Equal(t, "m", domain.SubjectKey("m", ""))
	assert.Equal(t, "m/door", domain.Subject{ModuleID: "m", InteractableID: "door"}.Key())
	require.True(t, domain.Subject{ModuleID: "m"}.IsModule())
}

func TestLifecycleHooks_Merge(t *testing.T) {
	var calls []string
	a := domain.LifecycleHooks{OnUnlock: func(_ context.Context, e *domain.ProgressionEvent) { calls = append(calls, "a:"+e.SubjectKey) }}
	b := domain.LifecycleHooks{OnUnlock: func(_ context.Context, e *domain.ProgressionEvent) { calls = append(calls, "b:"+e.SubjectKey) }}

	merged := a.Merge(b)
	merged.OnUnlock(context.Background(), &domain.ProgressionEvent{SubjectKey: "m"})
	assert.Equal(t, []string{"a:m", "b:m"}, calls)
	assert.Nil(t, merged.OnChoice)
}
