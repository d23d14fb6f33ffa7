package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/lessonweave/pkg/domain"
	"github.com/aretw0/lessonweave/pkg/ports"
)

// ModuleLoaderContractTest is a reusable suite that verifies an adapter complies with ports.ModuleLoader.
// expected maps module ids to their titles.
func ModuleLoaderContractTest(t *testing.T, loader ports.ModuleLoader, expected map[string]string) {
	t.Helper()
	ctx := context.Background()

	t.Run("LoadModule_Success", func(t *testing.T) {
		for id, title := range expected {
			m, err := loader.LoadModule(ctx, id)
			require.NoError(t, err, "loading module %s", id)
			assert.Equal(t, id, m.ID())
			assert.Equal(t, title, m.Manifest.Title)
		}
	})

	t.Run("LoadModule_NotFound", func(t *testing.T) {
		_, err := loader.LoadModule(ctx, "non-existent-module")
		assert.ErrorIs(t, err, domain.ErrModuleNotFound)
	})

	t.Run("ListModules", func(t *testing.T) {
		ids, err := loader.ListModules(ctx)
		require.NoError(t, err)
		assert.Len(t, ids, len(expected))
		for id := range expected {
			assert.Contains(t, ids, id)
		}
	})
}
