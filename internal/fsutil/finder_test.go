package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.json", "notes.txt", "sub/c.hcl", ".git/d.hcl", "x.hcl.bak"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	files, err := FindFiles(root, ".hcl", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "sub/c.hcl"),
	}, files)
}

func TestFindFiles_Errors(t *testing.T) {
	_, err := FindFiles(t.TempDir())
	assert.ErrorContains(t, err, "no extensions")

	_, err = FindFiles(filepath.Join(t.TempDir(), "missing"), ".hcl")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
