package assembler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/repository/manifest"
)

type fakeUploader struct {
	uploads map[string]string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, name, localPath, contentType string) (string, error) {
	if f.err != nil {
		return "", f.err
	}

	if f.uploads == nil {
		f.uploads = make(map[string]string)
	}

	f.uploads[name] = contentType + " " + localPath

	return "releases/" + name, nil
}

func publishRunner(t *testing.T, uploader *fakeUploader, withManifest bool) *runner {
	t.Helper()

	archivePath := filepath.Join(t.TempDir(), "myapp-mac.zip")
	require.NoError(t, os.WriteFile(archivePath, []byte("zip"), 0o644))

	cfg := &config.Config{Output: config.Output{ArchivePath: archivePath, Manifest: withManifest}}

	return &runner{
		cfg:       cfg,
		manifests: manifest.NewFileRepository(manifest.PathFor(archivePath)),
		uploader:  uploader,
	}
}

// TestPublish uploads the archive and, when enabled, the manifest.
func TestPublish(t *testing.T) {
	t.Parallel()

	uploader := new(fakeUploader)
	r := publishRunner(t, uploader, true)

	require.NoError(t, r.publish(context.Background()))
	require.Equal(t, map[string]string{
		"myapp-mac.zip":      archiveContentType + " " + r.cfg.Output.ArchivePath,
		"myapp-mac.zip.yaml": manifestContentType + " " + r.manifests.Path(),
	}, uploader.uploads)
}

// TestPublish_ArchiveOnly skips the manifest when it is disabled.
func TestPublish_ArchiveOnly(t *testing.T) {
	t.Parallel()

	uploader := new(fakeUploader)
	r := publishRunner(t, uploader, false)

	require.NoError(t, r.publish(context.Background()))
	require.Len(t, uploader.uploads, 1)
}

// TestPublish_Disabled does nothing without an uploader.
func TestPublish_Disabled(t *testing.T) {
	t.Parallel()

	r := publishRunner(t, nil, true)
	r.uploader = nil

	require.NoError(t, r.publish(context.Background()))
}

// TestPublish_Error names the failing file.
func TestPublish_Error(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{err: errors.New("access denied")}
	r := publishRunner(t, uploader, true)

	err := r.publish(context.Background())
	require.ErrorContains(t, err, "myapp-mac.zip")
	require.ErrorContains(t, err, "access denied")
}
