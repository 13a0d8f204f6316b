package stager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/oshokin/jvm-assembler/internal/archive"
	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
)

const (
	// RuntimeDir receives the extracted JDK.
	RuntimeDir = "jdk"
	// ToolchainDir receives the extracted WiX toolset on Windows.
	ToolchainDir = "wixtoolset"
	// SourceDir receives the de-nested application payload.
	SourceDir = "src"

	// StageExtractRuntime names failures while unpacking the JDK.
	StageExtractRuntime = "extract-runtime"
	// StageFindExecutable names failures locating jpackage.
	StageFindExecutable = "find-packaging-executable"
	// StageExtractToolchain names failures while unpacking the WiX toolset.
	StageExtractToolchain = "extract-toolchain"
	// StageExtractPayload names failures while unpacking the application.
	StageExtractPayload = "extract-payload"
	// StageResolveAssets names missing icon, license or entitlements files.
	StageResolveAssets = "resolve-assets"

	// packagingExecutable is the base name of the tool searched in the runtime.
	packagingExecutable = "jpackage"
)

// errFoundExecutable stops the runtime walk once the executable is found.
var errFoundExecutable = errors.New("found")

// ExtractAll stages every input below workDir for the given platform.
// It must be called once per run, before any build step.
func ExtractAll(
	ctx context.Context,
	cfg *config.Config,
	workDir string,
	platform image.Platform,
) (*image.StagedInputs, error) {
	ctx = logger.WithName(ctx, "stager")

	staged := &image.StagedInputs{
		RuntimeDir: filepath.Join(workDir, RuntimeDir),
		SourceDir:  filepath.Join(workDir, SourceDir),
	}

	logger.InfoKV(ctx, "Extracting runtime", "archive", cfg.Input.RuntimeArchive)

	if err := extractFresh(cfg.Input.RuntimeArchive, staged.RuntimeDir); err != nil {
		return nil, image.NewStageError(StageExtractRuntime, "",
			fmt.Errorf("%w: runtime: %w", image.ErrExtraction, err))
	}

	jpackage, err := FindPackagingExecutable(staged.RuntimeDir, platform)
	if err != nil {
		return nil, image.NewStageError(StageFindExecutable, packagingExecutable, err)
	}

	staged.PackagingExecutable = jpackage
	logger.DebugKV(ctx, "Located packaging executable", "path", jpackage)

	if platform == image.PlatformWindows && cfg.Input.ToolchainArchive != "" {
		staged.ToolchainDir = filepath.Join(workDir, ToolchainDir)

		logger.InfoKV(ctx, "Extracting WiX toolset", "archive", cfg.Input.ToolchainArchive)

		if err = extractFresh(cfg.Input.ToolchainArchive, staged.ToolchainDir); err != nil {
			return nil, image.NewStageError(StageExtractToolchain, "",
				fmt.Errorf("%w: toolchain: %w", image.ErrExtraction, err))
		}
	}

	logger.InfoKV(ctx, "Extracting application payload", "archive", cfg.Input.SourceArchive)

	if err = ExtractPayload(cfg.Input.SourceArchive, staged.SourceDir); err != nil {
		return nil, image.NewStageError(StageExtractPayload, "", err)
	}

	if err = resolveAssets(cfg, staged); err != nil {
		return nil, image.NewStageError(StageResolveAssets, "", err)
	}

	return staged, nil
}

// ExtractPayload extracts src into dst dropping the single top-level directory.
func ExtractPayload(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: payload: %s already exists", image.ErrExtraction, dst)
	}

	err := archive.Extract(src, dst, archive.StripComponents(1))

	switch {
	case err == nil:
		return nil
	case errors.Is(err, archive.ErrNoSingleRoot):
		return fmt.Errorf("%w: %w", image.ErrPayloadLayout, err)
	default:
		return fmt.Errorf("%w: payload: %w", image.ErrExtraction, err)
	}
}

// FindPackagingExecutable walks the runtime for jpackage (jpackage.exe on Windows).
func FindPackagingExecutable(runtimeDir string, platform image.Platform) (string, error) {
	name := platform.ExecutableName(packagingExecutable)

	var found string

	err := filepath.WalkDir(runtimeDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || d.Name() != name {
			return nil
		}

		found = path

		return errFoundExecutable
	})
	if err != nil && !errors.Is(err, errFoundExecutable) {
		return "", fmt.Errorf("%w: search %s: %w", image.ErrExtraction, runtimeDir, err)
	}

	if found == "" {
		return "", fmt.Errorf("%w: could not locate %q in the provided runtime", image.ErrMissingTool, name)
	}

	abs, err := filepath.Abs(found)
	if err != nil {
		return "", err
	}

	return abs, nil
}

// extractFresh creates dst, failing if it exists, and extracts src into it.
func extractFresh(src, dst string) error {
	if err := os.Mkdir(dst, 0o755); err != nil {
		return err
	}

	return archive.Extract(src, dst)
}

// resolveAssets checks that configured optional assets exist.
func resolveAssets(cfg *config.Config, staged *image.StagedInputs) error {
	assets := []struct {
		path   string
		target *string
	}{
		{cfg.Input.Icon, &staged.Icon},
		{cfg.Input.License, &staged.License},
		{cfg.Input.MacEntitlements, &staged.MacEntitlements},
	}

	for _, asset := range assets {
		if asset.path == "" {
			continue
		}

		if _, err := os.Stat(asset.path); err != nil {
			return fmt.Errorf("%w: asset: %w", image.ErrExtraction, err)
		}

		abs, err := filepath.Abs(asset.path)
		if err != nil {
			return err
		}

		*asset.target = abs
	}

	return nil
}
