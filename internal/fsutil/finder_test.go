package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.hcl", "notes.txt", "sub/c.hcl", "sub/d.madx"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o600))
	}

	files, err := FindFiles(root, ".hcl")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "sub", "c.hcl"),
	}, files)

	files, err = FindFiles(root, ".madx", ".txt")
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(root, "notes.txt"),
		filepath.Join(root, "sub", "d.madx"),
	}, files)

	t.Run("single file", func(t *testing.T) {
		files, err := FindFiles(filepath.Join(root, "a.hcl"), ".hcl")
		require.NoError(t, err)
		require.Equal(t, []string{filepath.Join(root, "a.hcl")}, files)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := FindFiles(filepath.Join(root, "nope"), ".hcl")
		require.ErrorIs(t, err, os.ErrNotExist)
	})
}
