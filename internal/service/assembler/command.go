package assembler

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/oshokin/jvm-assembler/internal/archive"
	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/repository/manifest"
	"github.com/oshokin/jvm-assembler/internal/repository/objectstore"
	"github.com/oshokin/jvm-assembler/internal/service/builder"
	"github.com/oshokin/jvm-assembler/internal/service/common"
	"github.com/oshokin/jvm-assembler/internal/service/stager"
	"github.com/oshokin/jvm-assembler/internal/shell"
	"github.com/oshokin/jvm-assembler/internal/version"
)

const (
	// dirMode is used for directories the assembler creates.
	dirMode os.FileMode = 0o755

	archiveContentType  = "application/zip"
	manifestContentType = "application/yaml"
)

// Options are inputs accepted by the assembler entry point.
type Options struct {
	// ConfigPath is the path to the assembly YAML file.
	ConfigPath string
	// WorkDir receives jdk/, src/, dist/ and anchors relative paths. Empty means
	// the current directory.
	WorkDir string
	// Platform overrides host detection; empty means the host OS.
	Platform image.Platform
	// Executor runs external tools; nil means the os/exec backed shell.
	Executor shell.Executor
	// Uploader publishes outputs; nil means the object store from
	// output.publish, if configured.
	Uploader objectstore.Uploader
}

// Result describes a finished assembly.
type Result struct {
	// ArchivePath is where the archive was placed.
	ArchivePath string
	// Artifact is the base name of the installer inside the archive.
	Artifact string
	// Manifest is the written manifest, if enabled.
	Manifest *image.Manifest
}

// runner holds the state of a single assembly.
type runner struct {
	// cfg is the validated configuration with absolute paths.
	cfg *config.Config
	// workDir is the absolute working directory.
	workDir string
	// platform is the target platform.
	platform image.Platform
	// redactor hides secrets in logs.
	redactor *logger.Redactor
	// exec runs external tools.
	exec shell.Executor
	// lock is held for the whole run.
	lock *workDirLock
	// manifests stores the manifest next to the archive.
	manifests *manifest.FileRepository
	// uploader is nil when publishing is off.
	uploader objectstore.Uploader
	// tempDir is scratch space for the archive.
	tempDir string
}

// upload is one file to publish.
type upload struct {
	path        string
	contentType string
}

// workTree are the directories recreated by every run.
//
//nolint:gochecknoglobals // Read-only list.
var workTree = []string{stager.RuntimeDir, stager.ToolchainDir, stager.SourceDir, builder.DistDir}

// Run executes the assembly and is the public entry point for the CLI.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	ctx = logger.WithName(ctx, "jvm-assembler")

	r, err := newRunner(ctx, opts)
	if err != nil {
		return nil, err
	}

	defer r.cleanup(ctx)

	res, err := r.Run(ctx)
	if err != nil {
		logger.ErrorKV(ctx, "Assembly failed", "error", r.redactor.Redact(err.Error()))

		return nil, err
	}

	logger.InfoKV(ctx, "Assembly completed", "archive", res.ArchivePath)

	return res, nil
}

// newRunner loads configuration, takes the working-directory lock and wires
// the collaborators.
func newRunner(ctx context.Context, opts *Options) (*runner, error) {
	if opts == nil {
		opts = new(Options)
	}

	workDir := opts.WorkDir
	if workDir == "" {
		workDir = "."
	}

	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if !logger.Configure(cfg.Logging.Level, cfg.Logging.Verbose) {
		logger.WarnKV(ctx, "Unknown log level, using info", "level", cfg.Logging.Level)
	}

	cfg.ResolvePaths(workDir)

	platform := opts.Platform
	if platform == "" {
		if platform, err = image.CurrentPlatform(); err != nil {
			return nil, err
		}
	}

	r := &runner{
		cfg:       cfg,
		workDir:   workDir,
		platform:  platform,
		redactor:  logger.NewRedactor(cfg.Logging.LogSensitiveData, cfg.Secrets()...),
		exec:      opts.Executor,
		manifests: manifest.NewFileRepository(manifest.PathFor(cfg.Output.ArchivePath)),
	}

	if r.exec == nil {
		r.exec = shell.New(r.redactor)
	}

	switch {
	case opts.Uploader != nil:
		r.uploader = opts.Uploader
	case cfg.Output.Publish != nil:
		store, storeErr := objectstore.New(cfg.Output.Publish)
		if storeErr != nil {
			return nil, storeErr
		}

		r.uploader = store
	}

	if err = os.MkdirAll(workDir, dirMode); err != nil {
		return nil, fmt.Errorf("create working directory: %w", err)
	}

	if r.lock, err = acquireLock(ctx, workDir); err != nil {
		return nil, err
	}

	return r, nil
}

// Run stages, builds, archives and publishes. Once the build succeeds, the
// artifact, archive and manifest are removed again if a later step fails.
func (r *runner) Run(ctx context.Context) (res *Result, err error) {
	logger.InfoKV(ctx, "Assembling image",
		"name", r.cfg.Image.Name, "platform", r.platform, "work_dir", r.workDir)

	if err = r.prepareWorkTree(ctx); err != nil {
		return nil, err
	}

	staged, err := stager.ExtractAll(ctx, r.cfg, r.workDir, r.platform)
	if err != nil {
		return nil, err
	}

	b, err := builder.ForPlatform(r.platform)
	if err != nil {
		return nil, err
	}

	bc := builder.NewBuildContext(r.cfg, staged, r.exec, r.redactor, r.workDir, r.platform)

	artifact, err := b.Build(ctx, bc)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			r.removeOutputs(ctx, artifact)
		}
	}()

	res = &Result{
		ArchivePath: r.cfg.Output.ArchivePath,
		Artifact:    filepath.Base(artifact),
	}

	checksum, size, err := r.archive(ctx, bc.DistDir)
	if err != nil {
		return nil, err
	}

	if r.cfg.Output.Manifest {
		if res.Manifest, err = r.writeManifest(ctx, bc, res.Artifact, checksum, size); err != nil {
			return nil, err
		}
	}

	if err = r.publish(ctx); err != nil {
		return nil, err
	}

	return res, nil
}

// prepareWorkTree removes leftovers of a previous run so extraction starts
// clean and a failed run leaves no archive behind.
func (r *runner) prepareWorkTree(ctx context.Context) error {
	for _, dir := range workTree {
		if err := os.RemoveAll(filepath.Join(r.workDir, dir)); err != nil {
			return fmt.Errorf("clean %s: %w", dir, err)
		}
	}

	for _, path := range []string{r.cfg.Output.ArchivePath, r.manifests.Path()} {
		if err := os.Remove(path); err == nil {
			logger.DebugKV(ctx, "Removed previous output", "path", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove previous output: %w", err)
		}
	}

	return nil
}

// removeOutputs deletes the renamed artifact, the placed archive and the manifest.
func (r *runner) removeOutputs(ctx context.Context, artifact string) {
	if err := os.RemoveAll(artifact); err != nil {
		logger.WarnKV(ctx, "Failed to remove artifact", "artifact", artifact, "error", err)
	}

	if err := os.Remove(r.cfg.Output.ArchivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.WarnKV(ctx, "Failed to remove archive", "error", err)
	}

	if err := r.manifests.Remove(); err != nil {
		logger.WarnKV(ctx, "Failed to remove manifest", "error", err)
	}
}

// archive zips dist/ and places it at the archive path. It returns the
// checksum and size of the archive.
func (r *runner) archive(ctx context.Context, distDir string) ([]byte, int64, error) {
	tempDir, err := os.MkdirTemp("", "jvm-assembler-")
	if err != nil {
		return nil, 0, err
	}

	r.tempDir = tempDir
	staging := filepath.Join(tempDir, filepath.Base(r.cfg.Output.ArchivePath))

	logger.InfoKV(ctx, "Archiving output", "dist", distDir)

	if err = archive.CreateZip(distDir, staging); err != nil {
		return nil, 0, err
	}

	checksum, size, err := common.FileChecksum(staging)
	if err != nil {
		return nil, 0, err
	}

	if err = placeArchive(ctx, staging, r.cfg.Output.ArchivePath, checksum); err != nil {
		return nil, 0, err
	}

	logger.InfoKV(ctx, "Archive placed",
		"path", r.cfg.Output.ArchivePath,
		"size", humanize.Bytes(uint64(size)), //nolint:gosec // File sizes are never negative.
	)

	return checksum, size, nil
}

// writeManifest stores the manifest next to the archive.
func (r *runner) writeManifest(
	ctx context.Context,
	bc *builder.BuildContext,
	artifact string,
	checksum []byte,
	size int64,
) (*image.Manifest, error) {
	m := &image.Manifest{
		Name:      r.cfg.Image.Name,
		Version:   bc.Version.String(),
		Platform:  r.platform,
		Artifact:  artifact,
		Archive:   filepath.Base(r.cfg.Output.ArchivePath),
		Size:      size,
		Checksum:  base64.StdEncoding.EncodeToString(checksum),
		BuiltAt:   time.Now().UTC(),
		Assembler: version.Short(),
	}

	actor, err := common.DetectActor()
	if err != nil {
		logger.WarnKV(ctx, "Unable to detect build actor", "error", err)
	} else {
		m.BuiltBy = actor
	}

	logger.InfoKV(ctx, "Saving manifest", "path", r.manifests.Path())

	if err = r.manifests.Save(ctx, m); err != nil {
		return nil, err
	}

	return m, nil
}

// publish uploads the archive and the manifest when publishing is configured.
func (r *runner) publish(ctx context.Context) error {
	if r.uploader == nil {
		return nil
	}

	uploads := []upload{{r.cfg.Output.ArchivePath, archiveContentType}}

	if r.cfg.Output.Manifest {
		uploads = append(uploads, upload{r.manifests.Path(), manifestContentType})
	}

	for _, u := range uploads {
		key, err := r.uploader.Upload(ctx, filepath.Base(u.path), u.path, u.contentType)
		if err != nil {
			return fmt.Errorf("publish %s: %w", filepath.Base(u.path), err)
		}

		logger.InfoKV(ctx, "Published", "key", key)
	}

	return nil
}

// cleanup releases the lock and removes scratch files.
func (r *runner) cleanup(ctx context.Context) {
	if r.tempDir != "" {
		_ = os.RemoveAll(r.tempDir)
	}

	if err := r.lock.release(); err != nil {
		logger.WarnKV(ctx, "Failed to release lock", "error", err)
	}

	logger.Debug(ctx, "The assembler has been stopped")
}
