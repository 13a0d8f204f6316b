package shell

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
)

// TestQuote renders arguments with spaces and quotes safely.
func TestQuote(t *testing.T) {
	t.Parallel()

	line := Quote([]string{"jpackage", "--name", "My App", "--type", "deb"})
	require.Equal(t, "jpackage --name 'My App' --type deb", line)
}

// TestMergeEnv overrides PATH case-insensitively and keeps everything else.
func TestMergeEnv(t *testing.T) {
	t.Parallel()

	base := []string{"Path=C:\\Windows", "HOME=/root"}
	merged := MergeEnv(base, map[string]string{"PATH": "C:\\wix;C:\\Windows"})

	require.Equal(t, []string{"HOME=/root", "PATH=C:\\wix;C:\\Windows"}, merged)
	require.Equal(t, base, MergeEnv(base, nil))
}

// TestShell_Execute captures output and classifies failures.
func TestShell_Execute(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("relies on sh")
	}

	s := New(logger.NewRedactor(false, "topsecret"))

	res, err := s.Execute(context.Background(), Command{
		Args: []string{"sh", "-c", "echo \"$GREETING\""},
		Env:  map[string]string{"GREETING": "hello"},
	})
	require.NoError(t, err)
	require.Equal(t, "hello\n", res.Output)

	_, err = s.Execute(context.Background(), Command{
		Args: []string{"sh", "-c", "echo topsecret; exit 3"},
	})
	require.ErrorIs(t, err, image.ErrExternalProcess)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.NotContains(t, exitErr.Output, "topsecret")
	require.NotContains(t, exitErr.Command, "topsecret")

	_, err = s.Execute(context.Background(), Command{})
	require.ErrorIs(t, err, errEmptyCommand)
}
