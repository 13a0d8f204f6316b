package codesign_test

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/jvm-assembler/internal/archive"
	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/service/codesign"
	"github.com/oshokin/jvm-assembler/internal/shell"
	"github.com/oshokin/jvm-assembler/internal/shell/shelltest"
)

func signingOptions() *config.AppleCodeSigning {
	return &config.AppleCodeSigning{
		Certificate:         "/secrets/cert.p12",
		CertificatePassword: "p12-secret",
		Identity:            "Developer ID Application: Example",
		TeamID:              "TEAM123",
	}
}

func exitError(args []string) error {
	return &shell.ExitError{Command: strings.Join(args, " "), Err: errors.New("exit status 1")}
}

// TestInitSequence creates and unlocks the keychain and hides its password.
func TestInitSequence(t *testing.T) {
	t.Parallel()

	rec := shelltest.New()
	rec.Handle("security", func(cmd shell.Command) (shell.Result, error) {
		if cmd.Args[1] == "list-keychains" && len(cmd.Args) == 4 {
			return shell.Result{Output: "    \"/Users/ci/Library/Keychains/login.keychain-db\"\n"}, nil
		}

		return shell.Result{}, nil
	})

	redactor := logger.NewRedactor(false)
	signer := codesign.New(rec, redactor, signingOptions(), "/assets/entitlements.plist")

	require.True(t, strings.HasPrefix(signer.Keychain(), "jvm-assembler-"))
	require.True(t, strings.HasSuffix(signer.Keychain(), ".keychain"))
	require.NoError(t, signer.Init(context.Background()))

	lines := rec.Lines()
	require.Len(t, lines, 7)

	order := []string{
		"security create-keychain",
		"security list-keychains -d user",
		"security set-keychain-settings -lut 21600 " + signer.Keychain(),
		"security unlock-keychain",
		"security import /secrets/cert.p12 -k " + signer.Keychain(),
		"security list-keychains -d user -s " + signer.Keychain() + " /Users/ci/Library/Keychains/login.keychain-db",
		"security set-key-partition-list -S apple-tool:,apple:,codesign: -s -k",
	}
	for i, prefix := range order {
		require.True(t, strings.HasPrefix(lines[i], prefix), "line %d: %q", i, lines[i])
	}

	// The generated keychain password never shows in redacted text.
	password := shelltest.Arg(rec.Commands()[0].Args, "-p")
	require.NotEmpty(t, password)
	require.NotContains(t, redactor.Redact(lines[0]), password)
}

// TestInitCreateFailure stops after a failed create-keychain.
func TestInitCreateFailure(t *testing.T) {
	t.Parallel()

	rec := shelltest.New()
	rec.Handle("security", func(cmd shell.Command) (shell.Result, error) {
		return shell.Result{}, exitError(cmd.Args)
	})

	signer := codesign.New(rec, logger.NewRedactor(false), signingOptions(), "e.plist")

	err := signer.Init(context.Background())
	require.ErrorIs(t, err, image.ErrSigning)
	require.ErrorIs(t, err, image.ErrExternalProcess)

	// Nothing was created, so there is nothing to delete.
	require.NoError(t, signer.DeleteKeychain(context.Background()))
	require.Len(t, rec.Lines(), 1)
}

// TestDeleteKeychainIsIdempotent deletes the keychain once.
func TestDeleteKeychainIsIdempotent(t *testing.T) {
	t.Parallel()

	rec := shelltest.New()
	signer := codesign.New(rec, logger.NewRedactor(false), signingOptions(), "e.plist")

	require.NoError(t, signer.Init(context.Background()))
	require.NoError(t, signer.DeleteKeychain(context.Background()))
	require.NoError(t, signer.DeleteKeychain(context.Background()))

	var deletes int

	for _, line := range rec.Lines() {
		if strings.HasPrefix(line, "security delete-keychain") {
			deletes++
		}
	}

	require.Equal(t, 1, deletes)
}

// TestSignFileArgs signs with the hardened runtime and entitlements.
func TestSignFileArgs(t *testing.T) {
	t.Parallel()

	rec := shelltest.New()
	signer := codesign.New(rec, logger.NewRedactor(false), signingOptions(), "/assets/entitlements.plist")

	require.Error(t, signer.SignFile(context.Background(), "/dist/app.dmg"))
	require.NoError(t, signer.Init(context.Background()))
	require.NoError(t, signer.SignFile(context.Background(), "/dist/app.dmg"))

	commands := rec.Commands()
	last := commands[len(commands)-1]

	require.Equal(t, []string{
		"codesign", "-f", "--timestamp", "--options", "runtime",
		"--entitlements", "/assets/entitlements.plist",
		"-s", "Developer ID Application: Example",
		"--keychain", signer.Keychain(),
		"/dist/app.dmg",
	}, last.Args)
}

// TestSignUnsignedNativeLibs signs loose libraries and libraries inside jars.
func TestSignUnsignedNativeLibs(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	lib := filepath.Join(root, "lib")
	require.NoError(t, os.MkdirAll(lib, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "loose.dylib"), []byte("loose"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "signed.dylib"), []byte("signed"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(lib, "readme.txt"), []byte("text"), 0o644))

	jarSrc := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(jarSrc, "darwin"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(jarSrc, "darwin", "native.jnilib"), []byte("native"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(jarSrc, "Main.class"), []byte("class"), 0o644))

	jar := filepath.Join(lib, "deps.jar")
	require.NoError(t, archive.CreateZip(jarSrc, jar))

	rec := shelltest.New()
	rec.Handle("codesign", func(cmd shell.Command) (shell.Result, error) {
		path := cmd.Args[len(cmd.Args)-1]

		if cmd.Args[1] == "--verify" {
			if filepath.Base(path) == "signed.dylib" {
				return shell.Result{}, nil
			}

			return shell.Result{}, exitError(cmd.Args)
		}

		// Simulate signing by appending a marker.
		f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
		if err != nil {
			return shell.Result{}, err
		}

		defer f.Close()

		_, err = f.WriteString("+sig")

		return shell.Result{}, err
	})

	signer := codesign.New(rec, logger.NewRedactor(false), signingOptions(), "e.plist")
	require.NoError(t, signer.Init(context.Background()))
	require.NoError(t, signer.SignUnsignedNativeLibs(context.Background(), root))

	var signed []string

	for _, cmd := range rec.Commands() {
		if shelltest.Program(cmd) == "codesign" && cmd.Args[1] == "-f" {
			signed = append(signed, filepath.Base(cmd.Args[len(cmd.Args)-1]))
		}
	}

	require.ElementsMatch(t, []string{"loose.dylib", "native.jnilib"}, signed)

	content, err := os.ReadFile(filepath.Join(lib, "loose.dylib"))
	require.NoError(t, err)
	require.Equal(t, "loose+sig", string(content))

	reader, err := zip.OpenReader(jar)
	require.NoError(t, err)

	defer reader.Close()

	members := make(map[string]string)

	for _, f := range reader.File {
		if f.FileInfo().IsDir() {
			continue
		}

		rc, openErr := f.Open()
		require.NoError(t, openErr)

		buf := new(strings.Builder)
		_, copyErr := io.Copy(buf, rc)
		require.NoError(t, copyErr)
		require.NoError(t, rc.Close())

		members[f.Name] = buf.String()
	}

	require.Equal(t, "native+sig", members["darwin/native.jnilib"])
	require.Equal(t, "class", members["Main.class"])
}

// TestSignUnsignedNativeLibsRequiresInit refuses to sign without a keychain.
func TestSignUnsignedNativeLibsRequiresInit(t *testing.T) {
	t.Parallel()

	signer := codesign.New(shelltest.New(), logger.NewRedactor(false), signingOptions(), "e.plist")
	require.Error(t, signer.SignUnsignedNativeLibs(context.Background(), t.TempDir()))
}
