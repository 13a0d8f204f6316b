package image

import "time"

// Manifest describes an assembled archive so that consumers can verify it.
type Manifest struct {
	// Name is the display name of the application.
	Name string `yaml:"name"`
	// Version is the full application version.
	Version string `yaml:"version"`
	// Platform is the platform the installer targets.
	Platform Platform `yaml:"platform"`
	// Artifact is the base name of the installer inside the archive.
	Artifact string `yaml:"artifact"`
	// Archive is the base name of the archive.
	Archive string `yaml:"archive"`
	// Size is the archive size in bytes.
	Size int64 `yaml:"size"`
	// Checksum is the base64 encoded SHA-512 of the archive.
	Checksum string `yaml:"checksum"`
	// BuiltAt is the UTC time the archive was placed.
	BuiltAt time.Time `yaml:"built_at"`
	// BuiltBy identifies the machine and user that ran the assembler.
	BuiltBy *Actor `yaml:"built_by,omitempty"`
	// Assembler is the version of the tool that produced the archive.
	Assembler string `yaml:"assembler"`
}
