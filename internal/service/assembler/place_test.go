package assembler

import (
	"context"
	"crypto/sha512"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestPlaceArchive_New places an archive where none existed.
func TestPlaceArchive_New(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "staging.zip")
	contents := []byte("zip contents")
	require.NoError(t, os.WriteFile(src, contents, 0o644))

	sum := sha512.Sum512(contents)
	target := filepath.Join(t.TempDir(), "out", "myapp-linux.zip")

	require.NoError(t, placeArchive(context.Background(), src, target, sum[:]))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, contents, got)

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestPlaceArchive_Replaces overwrites an existing archive without leftovers.
func TestPlaceArchive_Replaces(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	target := filepath.Join(dir, "myapp-linux.zip")
	require.NoError(t, os.WriteFile(target, []byte("previous"), 0o644))

	src := filepath.Join(t.TempDir(), "staging.zip")
	contents := []byte("next")
	require.NoError(t, os.WriteFile(src, contents, 0o644))

	sum := sha512.Sum512(contents)
	require.NoError(t, placeArchive(context.Background(), src, target, sum[:]))

	got, err := os.ReadFile(target)
	require.NoError(t, err)
	require.Equal(t, contents, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

// TestPlaceArchive_ChecksumMismatch leaves no archive behind.
func TestPlaceArchive_ChecksumMismatch(t *testing.T) {
	t.Parallel()

	src := filepath.Join(t.TempDir(), "staging.zip")
	require.NoError(t, os.WriteFile(src, []byte("zip contents"), 0o644))

	wrong := sha512.Sum512([]byte("something else"))
	target := filepath.Join(t.TempDir(), "myapp-linux.zip")

	require.Error(t, placeArchive(context.Background(), src, target, wrong[:]))
	require.NoFileExists(t, target)
}
