package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, "--env-file", filepath.Join(t.TempDir(), "none.env")))
	err := rootCmd.Execute()
	return out.String(), err
}

func course() string {
	return filepath.Join("..", "..", "testdata", "course")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "lessonweave version ")
}

func TestValidate(t *testing.T) {
	out, err := run(t, "validate", "--dir", course())
	require.NoError(t, err)
	assert.Contains(t, out, "2 modules are valid!")
}

func TestGraph(t *testing.T) {
	t.Run("Catalog", func(t *testing.T) {
		out, err := run(t, "graph", "--dir", course())
		require.NoError(t, err)
		assert.Contains(t, out, "graph LR")
	})

	t.Run("Module", func(t *testing.T) {
		out, err := run(t, "graph", "--dir", course(), "workshop")
		require.NoError(t, err)
		assert.Contains(t, out, "%% workshop/tinkerer")
	})

	t.Run("Unknown tree", func(t *testing.T) {
		_, err := run(t, "graph", "--dir", course(), "workshop", "nope")
		assert.ErrorContains(t, err, "dialogue not found")
	})
}

func TestProgress(t *testing.T) {
	out, err := run(t, "progress", "ada", "--dir", course(), "--store", "memory")
	require.NoError(t, err)
	assert.Contains(t, out, `"profile_id": "ada"`)
	assert.Contains(t, out, `"basics": "unlocked"`)
}

func TestUnknownStore(t *testing.T) {
	_, err := run(t, "progress", "ada", "--dir", course(), "--store", "tape")
	assert.ErrorContains(t, err, "unknown store")
}
