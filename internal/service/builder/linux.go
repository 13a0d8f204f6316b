package builder

import "github.com/oshokin/jvm-assembler/internal/domain/image"

// Linux builds a DEB package.
type Linux struct {
	hooks
}

// Platform implements Strategy.
func (*Linux) Platform() image.Platform {
	return image.PlatformLinux
}

// PackArgs implements Strategy.
func (*Linux) PackArgs(bc *BuildContext) []string {
	launcher := bc.Config.Launcher

	args := append([]string{"--type", "deb"}, licenseArgs(bc)...)

	if launcher.CreateShortcut {
		args = append(args, "--linux-shortcut")
	}

	args = appendOptional(args, "--linux-menu-group", launcher.Linux.MenuGroup)

	return appendOptional(args, "--linux-app-category", launcher.Linux.AppCategory)
}
