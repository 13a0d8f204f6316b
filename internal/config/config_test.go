package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Input: Input{
			RuntimeArchive: "jdk.tar.gz",
			SourceArchive:  "app.zip",
			VersionFile:    "VERSION",
			JarsPath:       "lib",
		},
		Image: Image{
			Name:     "MyApp",
			Filename: "myapp",
		},
		Launcher: Launcher{
			MainClass: "com.example.Main",
			MainJar:   "myapp.jar",
		},
		Output: Output{
			ArchivePath: "myapp-linux.zip",
		},
	}
}

// TestValidate checks required fields and signing/publish validation.
func TestValidate(t *testing.T) {
	t.Parallel()

	require.Error(t, Validate(nil))
	require.ErrorIs(t, Validate(new(Config)), errFieldRequired)
	require.NoError(t, Validate(validConfig()))

	// Path separators in the filename stem.
	cfg := validConfig()
	cfg.Image.Filename = "dist/myapp"
	require.ErrorIs(t, Validate(cfg), errInvalidField)

	// Signing without parameters.
	cfg = validConfig()
	cfg.Image.AppleCodeSigningEnabled = true
	require.ErrorIs(t, Validate(cfg), errFieldRequired)

	// Signing with parameters gets notarization defaults.
	cfg.Input.MacEntitlements = "entitlements.plist"
	cfg.Image.AppleCodeSigning = &AppleCodeSigning{
		Certificate:     "cert.p12",
		Identity:        "Developer ID Application: Example (TEAM)",
		TeamID:          "TEAM",
		AppleID:         "dev@example.com",
		AppleIDPassword: "app-password",
	}
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultNotarizationTimeout, cfg.Image.AppleCodeSigning.NotarizationTimeout)
	require.Equal(t, DefaultNotarizationPollInterval, cfg.Image.AppleCodeSigning.NotarizationPollInterval)

	// Publishing endpoint with a scheme.
	cfg = validConfig()
	cfg.Output.Publish = &Publish{
		Endpoint:  "https://s3.example.com",
		Bucket:    "releases",
		AccessKey: "a",
		SecretKey: "b",
	}
	require.ErrorIs(t, Validate(cfg), errInvalidField)

	cfg.Output.Publish.Endpoint = "s3.example.com"
	require.NoError(t, Validate(cfg))
	require.Equal(t, DefaultRegion, cfg.Output.Publish.Region)
}

// TestLoad_ExpandsSecrets reads YAML and resolves ${NAME} secrets from the environment.
func TestLoad_ExpandsSecrets(t *testing.T) {
	t.Setenv("ASSEMBLER_TEST_APPLE_PASSWORD", "from-env")

	path := filepath.Join(t.TempDir(), DefaultConfigFilename)
	contents := `
input:
  runtime_archive: jdk.tar.gz
  source_archive: app.zip
  version_file: VERSION
  mac_entitlements: entitlements.plist
image:
  name: MyApp
  filename: myapp
  apple_code_signing_enabled: true
  apple_code_signing:
    certificate: cert.p12
    certificate_password: plain
    identity: "Developer ID Application: Example (TEAM)"
    team_id: TEAM
    apple_id: dev@example.com
    apple_id_password: ${ASSEMBLER_TEST_APPLE_PASSWORD}
    notarization_timeout: 10m
launcher:
  main_class: com.example.Main
  main_jar: myapp.jar
output:
  archive_path: out.zip
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.True(t, cfg.SigningEnabled())
	require.Equal(t, "from-env", cfg.Image.AppleCodeSigning.AppleIDPassword)
	require.Equal(t, "10m0s", cfg.Image.AppleCodeSigning.NotarizationTimeout.String())
	require.ElementsMatch(t, []string{"plain", "from-env"}, cfg.Secrets())

	rendered, err := Marshal(cfg, "***")
	require.NoError(t, err)
	require.NotContains(t, string(rendered), "from-env")
	require.NotContains(t, string(rendered), "plain")
	require.Equal(t, "from-env", cfg.Image.AppleCodeSigning.AppleIDPassword)
}

// TestLoad_Missing reports unreadable files.
func TestLoad_Missing(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

// TestMainJarPath joins the jars directory and main jar.
func TestMainJarPath(t *testing.T) {
	t.Parallel()

	require.Equal(t, filepath.Join("lib", "myapp.jar"), validConfig().MainJarPath())
}

// TestResolvePaths anchors relative paths at the working directory.
func TestResolvePaths(t *testing.T) {
	t.Parallel()

	base := t.TempDir()
	absolute := filepath.Join(t.TempDir(), "app.zip")

	cfg := validConfig()
	cfg.Input.SourceArchive = absolute
	cfg.ResolvePaths(base)

	require.Equal(t, filepath.Join(base, "jdk.tar.gz"), cfg.Input.RuntimeArchive)
	require.Equal(t, absolute, cfg.Input.SourceArchive)
	require.Equal(t, filepath.Join(base, "VERSION"), cfg.Input.VersionFile)
	require.Equal(t, filepath.Join(base, "myapp-linux.zip"), cfg.Output.ArchivePath)
	require.Empty(t, cfg.Input.Icon)
	require.Equal(t, "lib", cfg.Input.JarsPath)
}
