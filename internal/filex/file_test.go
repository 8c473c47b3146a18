package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureDir_CreatesNestedDirectory(t *testing.T) {
	want := filepath.Join(t.TempDir(), "a", "b")

	got, err := EnsureDir(want)
	require.NoError(t, err)
	require.Equal(t, want, got)

	fi, err := os.Stat(want)
	require.NoError(t, err)
	require.True(t, fi.IsDir())
	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm())
	}

	// idempotent
	_, err = EnsureDir(want)
	require.NoError(t, err)
}

func TestEnsureDir_FailsWhenPathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o600))

	_, err := EnsureDir(file)
	require.Error(t, err)
}

func TestCopyInto(t *testing.T) {
	src := filepath.Join(t.TempDir(), "photo.jpg")
	require.NoError(t, os.WriteFile(src, []byte("jpeg-bytes"), 0o600))

	dir := filepath.Join(t.TempDir(), "pending")
	dst, err := CopyInto(dir, "d1-photo.jpg", src)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "d1-photo.jpg"), dst)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no staging leftovers")

	_, err = CopyInto(dir, "x", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}
