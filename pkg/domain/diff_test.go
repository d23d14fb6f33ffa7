package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiff(t *testing.T) {
	base := func() *Progress {
		p := NewProgress("p1")
		p.Enter("intro").CompleteTask("t1")
		p.Progression["intro"] = StateUnlocked
		return p
	}

	t.Run("Initial Load (Old is Nil)", func(t *testing.T) {
		p := base()
		diff := Diff(nil, p)
		require.NotNil(t, diff)
		assert.Equal(t, "p1", diff.ProfileID)
		assert.Equal(t, map[string]ProgressionState{"intro": StateUnlocked}, diff.Progression)
		assert.Contains(t, diff.Modules, "intro")
		assert.Nil(t, diff.ActiveModule)
	})

	t.Run("No Changes", func(t *testing.T) {
		p := base()
		assert.Nil(t, Diff(p, p.Clone()))
	})

	t.Run("Progression Advance", func(t *testing.T) {
		old := base()
		next := old.Clone()
		next.Advance("intro", StateCompleted)
		next.Advance("advanced", StateUnlocked)

		diff := Diff(old, next)
		require.NotNil(t, diff)
		assert.Equal(t, map[string]ProgressionState{
			"intro":    StateCompleted,
			"advanced": StateUnlocked,
		}, diff.Progression)
		assert.Nil(t, diff.Modules)
	})

	t.Run("Module Modified", func(t *testing.T) {
		old := base()
		next := old.Clone()
		next.Modules["intro"].SetModuleValue("door", "open")

		diff := Diff(old, next)
		require.NotNil(t, diff)
		require.Contains(t, diff.Modules, "intro")
		assert.Equal(t, "open", diff.Modules["intro"].State["door"])
	})

	t.Run("Module Reset", func(t *testing.T) {
		old := base()
		next := old.Clone()
		next.Reset("intro")

		diff := Diff(old, next)
		require.NotNil(t, diff)
		assert.Contains(t, diff.Modules, "intro")
		assert.Nil(t, diff.Modules["intro"])
		assert.Equal(t, StateLocked, diff.Progression["intro"])
	})

	t.Run("Active Module Change", func(t *testing.T) {
		old := base()
		next := old.Clone()
		next.ActiveModule = "intro"

		diff := Diff(old, next)
		require.NotNil(t, diff)
		require.NotNil(t, diff.ActiveModule)
		assert.Equal(t, "intro", *diff.ActiveModule)
	})
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Deletions as Null", func(t *testing.T) {
		old := NewProgress("p1")
		old.Enter("a")
		next := old.Clone()
		delete(next.Modules, "a")

		diff := Diff(old, next)
		require.NotNil(t, diff)

		bytes, err := json.Marshal(diff)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(bytes), `"a":null`), "got %s", string(bytes))
		assert.False(t, strings.Contains(string(bytes), `"progression"`))
	})
}
