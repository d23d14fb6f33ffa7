package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/pkg/domain"
)

// RunProgressStoreContract runs a suite of tests to verify that a ProgressStore
// implementation adheres to the interface contract.
func RunProgressStoreContract(t *testing.T, store ProgressStore) {
	ctx := context.Background()
	profileID := "contract-profile-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		progress := domain.NewProgress(profileID)
		m := progress.Enter("intro")
		m.CompleteTask("hello")
		m.CurrentTaskID = "greet"
		m.SetModuleValue("door", "open")
		m.SetModuleValue("count", 42)
		m.SetInteractableValue("npc", "mood", "happy")
		progress.Advance("intro", domain.StateUnlocked)
		progress.Advance("intro/npc", domain.StateCompleted)
		progress.ActiveModule = "intro"

		require.NoError(t, store.Save(ctx, profileID, progress), "Save should not return error")

		loaded, err := store.Load(ctx, profileID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, profileID, loaded.ProfileID)
		assert.Equal(t, "intro", loaded.ActiveModule)
		assert.Equal(t, domain.StateUnlocked, loaded.StateOf("intro"))
		assert.Equal(t, domain.StateCompleted, loaded.StateOf("intro/npc"))

		lm, ok := loaded.Module("intro")
		require.True(t, ok)
		assert.True(t, lm.IsTaskComplete("hello"))
		assert.Equal(t, "greet", lm.CurrentTaskID)
		v, _ := lm.ModuleValue("door")
		assert.Equal(t, "open", v)
		// JSON round trips turn ints into floats; only presence is part of the contract.
		_, ok = lm.ModuleValue("count")
		assert.True(t, ok)
		v, _ = lm.InteractableValue("npc", "mood")
		assert.Equal(t, "happy", v)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+profileID)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		id := profileID + "-overwrite"
		first := domain.NewProgress(id)
		first.Advance("a", domain.StateUnlocked)
		require.NoError(t, store.Save(ctx, id, first))

		second := domain.NewProgress(id)
		second.Advance("a", domain.StateCompleted)
		require.NoError(t, store.Save(ctx, id, second))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, loaded.StateOf("a"))
		_ = store.Delete(ctx, id)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, profileID, domain.NewProgress(profileID)))
		require.NoError(t, store.Delete(ctx, profileID), "Delete should not return error")

		_, err := store.Load(ctx, profileID)
		assert.ErrorIs(t, err, domain.ErrProfileNotFound, "Load after Delete should return ErrProfileNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := profileID + "-1"
		id2 := profileID + "-2"
		require.NoError(t, store.Save(ctx, id1, domain.NewProgress(id1)))
		require.NoError(t, store.Save(ctx, id2, domain.NewProgress(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		profiles, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, profiles, id1)
		assert.Contains(t, profiles, id2)
	})
}
