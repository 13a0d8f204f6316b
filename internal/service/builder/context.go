package builder

import (
	"path/filepath"
	"strings"

	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/shell"
)

// DistDir is the packaging output directory below the working directory.
const DistDir = "dist"

// BuildContext carries everything a build step needs. It is passed explicitly
// to every stage; only Build sets Version.
type BuildContext struct {
	// Config is the validated configuration.
	Config *config.Config
	// Staged are the extracted inputs.
	Staged *image.StagedInputs
	// Version is read from the version file at the start of Build.
	Version image.Version
	// Exec runs the external tools.
	Exec shell.Executor
	// Redactor receives secrets generated during the build.
	Redactor *logger.Redactor
	// WorkDir is the working directory; tools run there.
	WorkDir string
	// DistDir is the absolute packaging output directory.
	DistDir string
	// Platform is the target platform.
	Platform image.Platform
}

// NewBuildContext assembles a BuildContext rooted at workDir.
func NewBuildContext(
	cfg *config.Config,
	staged *image.StagedInputs,
	exec shell.Executor,
	redactor *logger.Redactor,
	workDir string,
	platform image.Platform,
) *BuildContext {
	return &BuildContext{
		Config:   cfg,
		Staged:   staged,
		Exec:     exec,
		Redactor: redactor,
		WorkDir:  workDir,
		DistDir:  filepath.Join(workDir, DistDir),
		Platform: platform,
	}
}

// rel returns path relative to the working directory when it lies inside it.
func (bc *BuildContext) rel(path string) string {
	r, err := filepath.Rel(bc.WorkDir, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return path
	}

	return r
}
