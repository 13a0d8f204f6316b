package builder

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
)

// pathListSeparator joins PATH entries for the Windows child process.
const pathListSeparator = ";"

// Windows builds an EXE installer with the WiX toolset.
type Windows struct {
	hooks
}

// Platform implements Strategy.
func (*Windows) Platform() image.Platform {
	return image.PlatformWindows
}

// PackArgs implements Strategy.
func (*Windows) PackArgs(bc *BuildContext) []string {
	launcher := bc.Config.Launcher

	args := append([]string{"--type", "exe"}, licenseArgs(bc)...)

	if launcher.CreateShortcut {
		args = append(args, "--win-shortcut")
	}

	if launcher.Windows.MenuGroup != "" {
		args = append(args, "--win-menu", "--win-menu-group", launcher.Windows.MenuGroup)
	}

	return args
}

// PackEnv prepends the toolset to PATH for the packaging executable only. The
// toolset is required.
func (*Windows) PackEnv(bc *BuildContext) (map[string]string, error) {
	if !bc.Staged.HasToolchain() {
		return nil, fmt.Errorf("%w: the WiX toolset is required to build on Windows but was not staged",
			image.ErrMissingTool)
	}

	toolchain, err := filepath.Abs(bc.Staged.ToolchainDir)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"PATH": toolchain + pathListSeparator + os.Getenv("PATH"),
	}, nil
}
