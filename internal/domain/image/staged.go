package image

// StagedInputs holds the paths produced by extracting and resolving inputs.
// The stager fills it once; build steps only read it.
type StagedInputs struct {
	// RuntimeDir is the extracted runtime (jdk/).
	RuntimeDir string
	// PackagingExecutable is the jpackage binary found inside RuntimeDir.
	PackagingExecutable string
	// SourceDir is the de-nested application payload (src/).
	SourceDir string
	// ToolchainDir is the extracted WiX toolset (wixtoolset/); Windows only.
	ToolchainDir string
	// Icon is the optional application icon.
	Icon string
	// License is the optional license file.
	License string
	// MacEntitlements is the optional entitlements plist used when signing.
	MacEntitlements string
}

// HasToolchain reports whether the installer toolkit was staged.
func (s *StagedInputs) HasToolchain() bool {
	return s != nil && s.ToolchainDir != ""
}

// Actor identifies who assembled an image.
type Actor struct {
	// Hostname is the machine name where the image was built.
	Hostname string `yaml:"hostname"`
	// Username is the system user running the assembler.
	Username string `yaml:"username"`
}
