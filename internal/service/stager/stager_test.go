package stager

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jvm-assembler/internal/archive"
	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
)

// zipTree writes files (relative path -> body) under a scratch dir and zips it.
func zipTree(t *testing.T, dst string, files map[string]string) {
	t.Helper()

	tree := t.TempDir()
	for name, body := range files {
		path := filepath.Join(tree, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	}

	require.NoError(t, archive.CreateZip(tree, dst))
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Input: config.Input{
			RuntimeArchive:   filepath.Join(dir, "jdk.zip"),
			SourceArchive:    filepath.Join(dir, "app.zip"),
			ToolchainArchive: filepath.Join(dir, "wix.zip"),
			VersionFile:      filepath.Join(dir, "VERSION"),
		},
	}
}

// TestExtractAll_Linux stages runtime and payload and skips the toolchain.
func TestExtractAll_Linux(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	require.NoError(t, os.Mkdir(work, 0o755))

	zipTree(t, filepath.Join(dir, "jdk.zip"), map[string]string{"jdk-21/bin/jpackage": "bin"})
	zipTree(t, filepath.Join(dir, "app.zip"), map[string]string{"myapp-2.0.0/lib/myapp.jar": "jar"})
	zipTree(t, filepath.Join(dir, "wix.zip"), map[string]string{"candle.exe": "wix"})

	license := filepath.Join(dir, "LICENSE")
	require.NoError(t, os.WriteFile(license, []byte("MIT"), 0o644))

	cfg := testConfig(dir)
	cfg.Input.License = license

	staged, err := ExtractAll(context.Background(), cfg, work, image.PlatformLinux)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(work, RuntimeDir, "jdk-21", "bin", "jpackage"), staged.PackagingExecutable)
	require.FileExists(t, filepath.Join(staged.SourceDir, "lib", "myapp.jar"))
	require.False(t, staged.HasToolchain())
	require.Equal(t, license, staged.License)
	require.Empty(t, staged.Icon)
	require.NoDirExists(t, filepath.Join(work, ToolchainDir))
}

// TestExtractAll_WindowsStagesToolchain looks for jpackage.exe and extracts WiX.
func TestExtractAll_WindowsStagesToolchain(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	require.NoError(t, os.Mkdir(work, 0o755))

	zipTree(t, filepath.Join(dir, "jdk.zip"), map[string]string{"jdk-21/bin/jpackage.exe": "bin"})
	zipTree(t, filepath.Join(dir, "app.zip"), map[string]string{"myapp/lib/myapp.jar": "jar"})
	zipTree(t, filepath.Join(dir, "wix.zip"), map[string]string{"candle.exe": "wix"})

	staged, err := ExtractAll(context.Background(), testConfig(dir), work, image.PlatformWindows)
	require.NoError(t, err)
	require.True(t, staged.HasToolchain())
	require.FileExists(t, filepath.Join(staged.ToolchainDir, "candle.exe"))
	require.Equal(t, "jpackage.exe", filepath.Base(staged.PackagingExecutable))
}

// TestExtractAll_MissingExecutable names the searched executable.
func TestExtractAll_MissingExecutable(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	require.NoError(t, os.Mkdir(work, 0o755))

	zipTree(t, filepath.Join(dir, "jdk.zip"), map[string]string{"jdk-21/bin/java": "bin"})
	zipTree(t, filepath.Join(dir, "app.zip"), map[string]string{"myapp/lib/myapp.jar": "jar"})

	_, err := ExtractAll(context.Background(), testConfig(dir), work, image.PlatformLinux)
	require.ErrorIs(t, err, image.ErrMissingTool)
	require.Contains(t, err.Error(), `"jpackage"`)

	var stageErr *image.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageFindExecutable, stageErr.Stage)
	require.Equal(t, "jpackage", stageErr.Tool)
}

// TestExtractAll_PayloadLayoutNamesStage reports the payload stage for a
// payload without a single top-level directory.
func TestExtractAll_PayloadLayoutNamesStage(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	work := filepath.Join(dir, "work")
	require.NoError(t, os.Mkdir(work, 0o755))

	zipTree(t, filepath.Join(dir, "jdk.zip"), map[string]string{"jdk-21/bin/jpackage": "bin"})
	zipTree(t, filepath.Join(dir, "app.zip"), map[string]string{"a/x.jar": "1", "b/y.jar": "2"})

	_, err := ExtractAll(context.Background(), testConfig(dir), work, image.PlatformLinux)
	require.ErrorIs(t, err, image.ErrPayloadLayout)

	var stageErr *image.StageError
	require.ErrorAs(t, err, &stageErr)
	require.Equal(t, StageExtractPayload, stageErr.Stage)
}

// TestExtractPayload_Layout de-nests a single directory and rejects other shapes.
func TestExtractPayload_Layout(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	good := filepath.Join(dir, "good.zip")
	zipTree(t, good, map[string]string{
		"myapp-2.0.0/lib/myapp.jar": "jar",
		"myapp-2.0.0/bin/start":     "sh",
	})

	src := filepath.Join(dir, "src")
	require.NoError(t, ExtractPayload(good, src))

	entries, err := os.ReadDir(src)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	require.ElementsMatch(t, []string{"lib", "bin"}, names)

	// Re-extracting into an existing directory is refused.
	require.ErrorIs(t, ExtractPayload(good, src), image.ErrExtraction)

	multiple := filepath.Join(dir, "multiple.zip")
	zipTree(t, multiple, map[string]string{"a/x": "1", "b/y": "2"})
	require.ErrorIs(t, ExtractPayload(multiple, filepath.Join(dir, "src-multiple")), image.ErrPayloadLayout)

	single := filepath.Join(dir, "single-file.zip")
	zipTree(t, single, map[string]string{"README": "readme"})
	require.ErrorIs(t, ExtractPayload(single, filepath.Join(dir, "src-file")), image.ErrPayloadLayout)
}
