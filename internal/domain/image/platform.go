package image

import (
	"fmt"
	"runtime"
)

// Platform identifies the operating system an image is built for.
type Platform string

const (
	// PlatformMac builds a DMG.
	PlatformMac Platform = "mac"
	// PlatformWindows builds an EXE installer.
	PlatformWindows Platform = "windows"
	// PlatformLinux builds a DEB package.
	PlatformLinux Platform = "linux"
)

// ParsePlatform maps a GOOS value to a Platform.
func ParsePlatform(goos string) (Platform, error) {
	switch goos {
	case "darwin":
		return PlatformMac, nil
	case "windows":
		return PlatformWindows, nil
	case "linux":
		return PlatformLinux, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
	}
}

// CurrentPlatform returns the Platform of the running host.
func CurrentPlatform() (Platform, error) {
	return ParsePlatform(runtime.GOOS)
}

// ExecutableName appends ".exe" on Windows.
func (p Platform) ExecutableName(base string) string {
	if p == PlatformWindows {
		return base + ".exe"
	}

	return base
}

// String implements fmt.Stringer.
func (p Platform) String() string {
	return string(p)
}
