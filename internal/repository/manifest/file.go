package manifest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
)

// Extension is appended to the archive path to name its manifest.
const Extension = ".yaml"

// fileMode is used for manifest files.
const fileMode os.FileMode = 0o644

// Repository defines persistence operations for manifests.
type Repository interface {
	Load(ctx context.Context) (*image.Manifest, error)
	Save(ctx context.Context, m *image.Manifest) error
	Path() string
}

// FileRepository stores a manifest as a YAML file.
type FileRepository struct {
	// path is the filesystem location of the manifest.
	path string
	// mu serializes access to the file.
	mu sync.Mutex
}

// ErrNotFound is returned when the manifest file does not exist yet.
var ErrNotFound = errors.New("manifest not found")

// PathFor returns the manifest path for an archive.
func PathFor(archivePath string) string {
	return archivePath + Extension
}

// NewFileRepository creates a repository that reads and writes YAML at path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// Path returns the manifest location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the manifest from disk.
func (r *FileRepository) Load(_ context.Context) (*image.Manifest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m image.Manifest
	if err = yaml.Unmarshal(contents, &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	return &m, nil
}

// Save writes the manifest through a temp file so readers never see a partial one.
func (r *FileRepository) Save(_ context.Context, m *image.Manifest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, fileMode); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("write manifest: %w", err)
	}

	return nil
}

// Remove deletes the manifest if present.
func (r *FileRepository) Remove() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}
