package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/shell"
)

// Stage names reported in image.StageError.
const (
	StageReadVersion = "read-version"
	StageBeforePack  = "before-pack"
	StagePack        = "pack"
	StageNormalize   = "normalize-filename"
	StageAfterPack   = "after-pack"
	StageClose       = "close"
)

// packagingTool names the packaging executable in stage errors.
const packagingTool = "jpackage"

// Builder runs the build sequence with one platform strategy.
type Builder struct {
	// strategy supplies the platform steps.
	strategy Strategy
}

// New creates a Builder for an explicit strategy.
func New(strategy Strategy) *Builder {
	return &Builder{strategy: strategy}
}

// ForPlatform creates a Builder for the platform.
func ForPlatform(platform image.Platform) (*Builder, error) {
	strategy, err := StrategyFor(platform)
	if err != nil {
		return nil, err
	}

	return New(strategy), nil
}

// ForCurrentPlatform creates a Builder for the host OS.
func ForCurrentPlatform() (*Builder, error) {
	platform, err := image.CurrentPlatform()
	if err != nil {
		return nil, err
	}

	return ForPlatform(platform)
}

// Platform returns the platform of the selected strategy.
func (b *Builder) Platform() image.Platform {
	return b.strategy.Platform()
}

// Build produces the installer and returns its path. Steps run in order and
// the first failure stops the build; the artifact is removed when the post-pack
// step fails.
func (b *Builder) Build(ctx context.Context, bc *BuildContext) (artifact string, err error) {
	ctx = logger.WithKV(logger.WithName(ctx, "builder"), "platform", b.Platform())

	defer func() {
		closeErr := b.strategy.Close(ctx, bc)
		if closeErr == nil {
			return
		}

		if err == nil {
			artifact, err = "", wrapStage(StageClose, "", closeErr)

			return
		}

		logger.WarnKV(ctx, "Cleanup after failed build also failed", "error", closeErr)
	}()

	version, err := image.ReadVersion(bc.Config.Input.VersionFile)
	if err != nil {
		return "", wrapStage(StageReadVersion, "", err)
	}

	bc.Version = version
	logger.InfoKV(ctx, "Building image", "name", bc.Config.Image.Name, "version", version)

	if err = b.strategy.BeforePack(ctx, bc); err != nil {
		return "", wrapStage(StageBeforePack, "", err)
	}

	if err = b.pack(ctx, bc); err != nil {
		return "", wrapStage(StagePack, packagingTool, err)
	}

	artifact, err = NormalizeFilename(
		bc.DistDir,
		bc.Config.Image.Name,
		bc.Config.Image.Filename,
		version.Short(),
		version.String(),
	)
	if err != nil {
		return "", wrapStage(StageNormalize, "", err)
	}

	logger.InfoKV(ctx, "Packaged", "artifact", artifact)

	if err = b.strategy.AfterPack(ctx, bc, artifact); err != nil {
		if rmErr := os.RemoveAll(artifact); rmErr != nil {
			logger.WarnKV(ctx, "Failed to remove artifact", "artifact", artifact, "error", rmErr)
		}

		return "", wrapStage(StageAfterPack, "", err)
	}

	return artifact, nil
}

// pack invokes the packaging executable with the common and platform arguments.
func (b *Builder) pack(ctx context.Context, bc *BuildContext) error {
	env, err := b.strategy.PackEnv(bc)
	if err != nil {
		return err
	}

	args := append([]string{bc.Staged.PackagingExecutable}, CommonArgs(bc)...)
	args = append(args, b.strategy.PackArgs(bc)...)

	logger.InfoKV(ctx, "Running packaging executable", "type", typeArg(args))

	if _, err = bc.Exec.Execute(ctx, shell.Command{Args: args, Dir: bc.WorkDir, Env: env}); err != nil {
		return err
	}

	return b.strategy.PostPack(ctx, bc)
}

// CommonArgs are the packaging arguments shared by every platform.
func CommonArgs(bc *BuildContext) []string {
	cfg := bc.Config

	args := []string{
		"--name", cfg.Image.Name,
		"--app-version", bc.Version.Short(),
		"--input", bc.rel(bc.Staged.SourceDir),
		"--main-jar", cfg.MainJarPath(),
		"--main-class", cfg.Launcher.MainClass,
		"--dest", bc.rel(bc.DistDir),
	}

	if cfg.Logging.Verbose {
		args = append(args, "--verbose")
	}

	args = appendOptional(args, "--description", cfg.Image.Description)
	args = appendOptional(args, "--vendor", cfg.Image.Vendor)
	args = appendOptional(args, "--copyright", cfg.Image.Copyright)

	return appendOptional(args, "--icon", bc.Staged.Icon)
}

// NormalizeFilename renames the single entry of distDir: every occurrence of
// display becomes stem and every occurrence of short becomes full. Only the
// base name is changed. It returns the new path.
func NormalizeFilename(distDir, display, stem, short, full string) (string, error) {
	entries, err := os.ReadDir(distDir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", image.ErrUnexpectedOutput, err)
	}

	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}

		return "", fmt.Errorf("%w: %s must hold exactly one entry, found %d %v",
			image.ErrUnexpectedOutput, distDir, len(entries), names)
	}

	oldName := entries[0].Name()
	newName := strings.ReplaceAll(oldName, display, stem)

	if short != "" {
		newName = strings.ReplaceAll(newName, short, full)
	}

	oldPath := filepath.Join(distDir, oldName)
	newPath := filepath.Join(distDir, newName)

	if newName == oldName {
		return oldPath, nil
	}

	if err = os.Rename(oldPath, newPath); err != nil {
		return "", fmt.Errorf("rename %s: %w", oldName, err)
	}

	return newPath, nil
}

// licenseArgs returns --license-file when a license was staged.
func licenseArgs(bc *BuildContext) []string {
	return appendOptional(nil, "--license-file", bc.Staged.License)
}

func appendOptional(args []string, flag, value string) []string {
	if value == "" {
		return args
	}

	return append(args, flag, value)
}

// wrapStage names the stage unless a strategy already did.
func wrapStage(stage, tool string, err error) error {
	var stageErr *image.StageError
	if errors.As(err, &stageErr) {
		return err
	}

	return image.NewStageError(stage, tool, err)
}

func typeArg(args []string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "--type" {
			return args[i+1]
		}
	}

	return ""
}
