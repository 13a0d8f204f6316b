package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the validated input of one assembly run.
type Config struct {
	// Input lists the archives and assets to stage.
	Input Input `yaml:"input"`
	// Image describes the produced installer and how it is signed.
	Image Image `yaml:"image"`
	// Launcher configures the application entry point and desktop integration.
	Launcher Launcher `yaml:"launcher"`
	// Output controls where the final archive goes.
	Output Output `yaml:"output"`
	// Logging controls verbosity and redaction.
	Logging Logging `yaml:"logging"`
}

// Input holds paths to the staged archives and optional assets.
type Input struct {
	// RuntimeArchive is the bundled JDK archive.
	RuntimeArchive string `yaml:"runtime_archive"`
	// SourceArchive is the application payload archive with a single top-level directory.
	SourceArchive string `yaml:"source_archive"`
	// ToolchainArchive is the WiX toolset archive, required on Windows.
	ToolchainArchive string `yaml:"toolchain_archive,omitempty"`
	// VersionFile holds the application version on its first line.
	VersionFile string `yaml:"version_file"`
	// JarsPath is the directory inside the payload holding the jars.
	JarsPath string `yaml:"jars_path,omitempty"`
	// Icon is an optional application icon.
	Icon string `yaml:"icon,omitempty"`
	// License is an optional license file shown by the installer.
	License string `yaml:"license,omitempty"`
	// MacEntitlements is the entitlements plist used for signing.
	MacEntitlements string `yaml:"mac_entitlements,omitempty"`
}

// Image holds installer metadata.
type Image struct {
	// Name is the display name passed to the packaging executable.
	Name string `yaml:"name"`
	// Filename is the stem of the final artifact name.
	Filename string `yaml:"filename"`
	// Description is an optional application description.
	Description string `yaml:"description,omitempty"`
	// Vendor is an optional vendor name.
	Vendor string `yaml:"vendor,omitempty"`
	// Copyright is an optional copyright string.
	Copyright string `yaml:"copyright,omitempty"`
	// AppleCodeSigningEnabled turns on signing and notarization on macOS.
	AppleCodeSigningEnabled bool `yaml:"apple_code_signing_enabled"`
	// AppleCodeSigning holds signing parameters; required when signing is enabled.
	AppleCodeSigning *AppleCodeSigning `yaml:"apple_code_signing,omitempty"`
}

// AppleCodeSigning holds the signing identity and notarization credentials.
type AppleCodeSigning struct {
	// Certificate is the path to a PKCS#12 file with the signing identity.
	Certificate string `yaml:"certificate"`
	// CertificatePassword unlocks Certificate.
	CertificatePassword string `yaml:"certificate_password"`
	// Identity is the codesign identity, e.g. "Developer ID Application: Vendor (TEAMID)".
	Identity string `yaml:"identity"`
	// TeamID is the Apple developer team.
	TeamID string `yaml:"team_id"`
	// AppleID is the account used to submit for notarization.
	AppleID string `yaml:"apple_id"`
	// AppleIDPassword is an app-specific password for AppleID.
	AppleIDPassword string `yaml:"apple_id_password"`
	// SignNativeLibsInDeps signs native libraries in the payload before packaging.
	SignNativeLibsInDeps bool `yaml:"sign_native_libs_in_deps"`
	// NotarizationTimeout bounds the wait for a terminal notarization status.
	NotarizationTimeout time.Duration `yaml:"notarization_timeout,omitempty"`
	// NotarizationPollInterval is the delay between status queries.
	NotarizationPollInterval time.Duration `yaml:"notarization_poll_interval,omitempty"`
}

// Launcher holds entry point and shortcut settings.
type Launcher struct {
	// MainClass is the fully qualified main class.
	MainClass string `yaml:"main_class"`
	// MainJar is the jar holding MainClass, relative to Input.JarsPath.
	MainJar string `yaml:"main_jar"`
	// CreateShortcut requests a desktop shortcut on Linux and Windows.
	CreateShortcut bool `yaml:"create_shortcut"`
	// Linux holds Linux menu settings.
	Linux LinuxLauncher `yaml:"linux,omitempty"`
	// Windows holds Windows menu settings.
	Windows WindowsLauncher `yaml:"windows,omitempty"`
}

// LinuxLauncher holds Linux desktop menu settings.
type LinuxLauncher struct {
	// MenuGroup is the menu group of the installed application.
	MenuGroup string `yaml:"menu_group,omitempty"`
	// AppCategory is the DEB package section.
	AppCategory string `yaml:"app_category,omitempty"`
}

// WindowsLauncher holds Windows start menu settings.
type WindowsLauncher struct {
	// MenuGroup adds a start menu entry under this group.
	MenuGroup string `yaml:"menu_group,omitempty"`
}

// Output controls the final archive.
type Output struct {
	// ArchivePath is where the archive is written, relative to the working directory.
	ArchivePath string `yaml:"archive_path"`
	// Manifest writes a YAML manifest next to the archive.
	Manifest bool `yaml:"manifest"`
	// Publish uploads the archive to an object store when set.
	Publish *Publish `yaml:"publish,omitempty"`
}

// Publish describes an S3-compatible destination.
type Publish struct {
	// Endpoint is host[:port] without scheme.
	Endpoint string `yaml:"endpoint"`
	// Bucket receives the objects.
	Bucket string `yaml:"bucket"`
	// Prefix is prepended to object keys.
	Prefix string `yaml:"prefix,omitempty"`
	// AccessKey is the access key id.
	AccessKey string `yaml:"access_key"`
	// SecretKey is the secret access key.
	SecretKey string `yaml:"secret_key"`
	// Region is the bucket region.
	Region string `yaml:"region,omitempty"`
	// UseSSL selects https.
	UseSSL bool `yaml:"use_ssl"`
}

// Logging holds log switches.
type Logging struct {
	// Verbose lowers the log level to debug and passes --verbose to jpackage.
	Verbose bool `yaml:"verbose"`
	// LogSensitiveData disables redaction of secrets in logged commands.
	LogSensitiveData bool `yaml:"log_sensitive_data"`
	// Level is the log level name; ignored when Verbose is set.
	Level string `yaml:"level,omitempty"`
}

const (
	// DefaultConfigFilename is the default path of the assembly configuration.
	DefaultConfigFilename = "assembly.yaml"

	// DefaultNotarizationTimeout bounds the notarization wait when unset.
	DefaultNotarizationTimeout = 30 * time.Minute

	// DefaultNotarizationPollInterval is the status polling delay when unset.
	DefaultNotarizationPollInterval = 30 * time.Second

	// DefaultRegion is used for publishing when no region is configured.
	DefaultRegion = "us-east-1"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errFieldRequired is returned when a mandatory field is empty.
	errFieldRequired = errors.New("field is required")
	// errInvalidField is returned when a field has a malformed value.
	errInvalidField = errors.New("invalid field")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read configuration: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	cfg.expandSecrets()

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Marshal renders the configuration with secrets replaced by placeholder.
func Marshal(cfg *Config, placeholder string) ([]byte, error) {
	if cfg == nil {
		return nil, errConfigIsNotSet
	}

	redacted := *cfg

	if s := cfg.Image.AppleCodeSigning; s != nil {
		copied := *s
		copied.CertificatePassword = maskIfSet(copied.CertificatePassword, placeholder)
		copied.AppleIDPassword = maskIfSet(copied.AppleIDPassword, placeholder)
		redacted.Image.AppleCodeSigning = &copied
	}

	if p := cfg.Output.Publish; p != nil {
		copied := *p
		copied.SecretKey = maskIfSet(copied.SecretKey, placeholder)
		redacted.Output.Publish = &copied
	}

	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("marshal configuration: %w", err)
	}

	return data, nil
}

// Secrets returns every secret value held by the configuration.
func (c *Config) Secrets() []string {
	var secrets []string

	if s := c.Image.AppleCodeSigning; s != nil {
		secrets = append(secrets, s.CertificatePassword, s.AppleIDPassword)
	}

	if p := c.Output.Publish; p != nil {
		secrets = append(secrets, p.SecretKey)
	}

	return secrets
}

// SigningEnabled reports whether Apple code signing parameters are active.
func (c *Config) SigningEnabled() bool {
	return c.Image.AppleCodeSigningEnabled && c.Image.AppleCodeSigning != nil
}

// MainJarPath joins the jars directory and the main jar.
func (c *Config) MainJarPath() string {
	return filepath.Join(c.Input.JarsPath, c.Launcher.MainJar)
}

// ResolvePaths makes every relative input and output path absolute against
// base. Empty optional paths stay empty.
func (c *Config) ResolvePaths(base string) {
	paths := []*string{
		&c.Input.RuntimeArchive,
		&c.Input.SourceArchive,
		&c.Input.ToolchainArchive,
		&c.Input.VersionFile,
		&c.Input.Icon,
		&c.Input.License,
		&c.Input.MacEntitlements,
		&c.Output.ArchivePath,
	}

	if s := c.Image.AppleCodeSigning; s != nil {
		paths = append(paths, &s.Certificate)
	}

	for _, p := range paths {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(base, *p)
		}
	}
}

// expandSecrets resolves ${NAME} references in secret fields from the environment.
func (c *Config) expandSecrets() {
	if s := c.Image.AppleCodeSigning; s != nil {
		s.CertificatePassword = os.ExpandEnv(s.CertificatePassword)
		s.AppleIDPassword = os.ExpandEnv(s.AppleIDPassword)
	}

	if p := c.Output.Publish; p != nil {
		p.AccessKey = os.ExpandEnv(p.AccessKey)
		p.SecretKey = os.ExpandEnv(p.SecretKey)
	}
}

// Validate checks required fields and applies defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	required := []struct {
		name  string
		value string
	}{
		{"input.runtime_archive", cfg.Input.RuntimeArchive},
		{"input.source_archive", cfg.Input.SourceArchive},
		{"input.version_file", cfg.Input.VersionFile},
		{"image.name", cfg.Image.Name},
		{"image.filename", cfg.Image.Filename},
		{"launcher.main_class", cfg.Launcher.MainClass},
		{"launcher.main_jar", cfg.Launcher.MainJar},
		{"output.archive_path", cfg.Output.ArchivePath},
	}

	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s: %w", field.name, errFieldRequired)
		}
	}

	if strings.ContainsAny(cfg.Image.Filename, `/\`) {
		return fmt.Errorf("image.filename %q must not contain path separators: %w", cfg.Image.Filename, errInvalidField)
	}

	if cfg.Image.AppleCodeSigningEnabled {
		if err := validateSigning(cfg); err != nil {
			return err
		}
	}

	if cfg.Output.Publish != nil {
		if err := cfg.Output.Publish.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// validateSigning checks parameters required for signing and notarization.
func validateSigning(cfg *Config) error {
	s := cfg.Image.AppleCodeSigning
	if s == nil {
		return fmt.Errorf("image.apple_code_signing: %w", errFieldRequired)
	}

	if cfg.Input.MacEntitlements == "" {
		return fmt.Errorf("input.mac_entitlements: %w", errFieldRequired)
	}

	required := map[string]string{
		"image.apple_code_signing.certificate":       s.Certificate,
		"image.apple_code_signing.identity":          s.Identity,
		"image.apple_code_signing.team_id":           s.TeamID,
		"image.apple_code_signing.apple_id":          s.AppleID,
		"image.apple_code_signing.apple_id_password": s.AppleIDPassword,
	}

	for name, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s: %w", name, errFieldRequired)
		}
	}

	if s.NotarizationTimeout <= 0 {
		s.NotarizationTimeout = DefaultNotarizationTimeout
	}

	if s.NotarizationPollInterval <= 0 {
		s.NotarizationPollInterval = DefaultNotarizationPollInterval
	}

	return nil
}

// Validate checks the publishing destination and applies the default region.
func (p *Publish) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"output.publish.endpoint", p.Endpoint},
		{"output.publish.bucket", p.Bucket},
		{"output.publish.access_key", p.AccessKey},
		{"output.publish.secret_key", p.SecretKey},
	}

	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			return fmt.Errorf("%s: %w", field.name, errFieldRequired)
		}
	}

	if strings.Contains(p.Endpoint, "://") {
		return fmt.Errorf("output.publish.endpoint %q must not include scheme: %w", p.Endpoint, errInvalidField)
	}

	if p.Region == "" {
		p.Region = DefaultRegion
	}

	return nil
}

func maskIfSet(value, placeholder string) string {
	if value == "" {
		return ""
	}

	return placeholder
}
