package codesign

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/oshokin/jvm-assembler/internal/archive"
	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/shell"
)

const (
	// securityTool manages keychains.
	securityTool = "security"
	// codesignTool signs and verifies code.
	codesignTool = "codesign"

	// keychainPrefix starts the name of every ephemeral keychain.
	keychainPrefix = "jvm-assembler-"
	// keychainLockTimeout keeps the keychain unlocked for a long build (seconds).
	keychainLockTimeout = "21600"
	// partitionList grants codesign access to the imported key without prompts.
	partitionList = "apple-tool:,apple:,codesign:"
)

// nativeLibExtensions are the file types treated as native libraries.
//
//nolint:gochecknoglobals // Read-only lookup table.
var nativeLibExtensions = map[string]struct{}{
	".dylib":  {},
	".jnilib": {},
}

var errKeychainNotReady = errors.New("keychain is not initialized")

// Signer signs files with an identity stored in an ephemeral keychain.
type Signer struct {
	// exec runs security and codesign.
	exec shell.Executor
	// opts holds the certificate and identity.
	opts *config.AppleCodeSigning
	// entitlements is the plist passed to codesign.
	entitlements string
	// keychain is the per-run keychain name.
	keychain string
	// password unlocks keychain; generated per run.
	password string
	// created is true between a successful create-keychain and DeleteKeychain.
	created bool
}

// New prepares a signer with a unique keychain name and password. The password
// is registered with redactor so it never reaches the log.
func New(exec shell.Executor, redactor *logger.Redactor, opts *config.AppleCodeSigning, entitlements string) *Signer {
	password := uuid.NewString()
	redactor.Add(password)

	return &Signer{
		exec:         exec,
		opts:         opts,
		entitlements: entitlements,
		keychain:     keychainPrefix + uuid.NewString() + ".keychain",
		password:     password,
	}
}

// Keychain returns the name of the ephemeral keychain.
func (s *Signer) Keychain() string {
	return s.keychain
}

// Init creates, unlocks and populates the keychain and adds it to the user
// search list so that codesign and jpackage can find the identity.
func (s *Signer) Init(ctx context.Context) error {
	logger.InfoKV(ctx, "Creating signing keychain", "keychain", s.keychain)

	if err := s.security(ctx, "create-keychain", "-p", s.password, s.keychain); err != nil {
		return fmt.Errorf("%w: create keychain: %w", image.ErrSigning, err)
	}

	s.created = true

	searchList, err := s.searchList(ctx)
	if err != nil {
		return err
	}

	steps := [][]string{
		{"set-keychain-settings", "-lut", keychainLockTimeout, s.keychain},
		{"unlock-keychain", "-p", s.password, s.keychain},
		{
			"import", s.opts.Certificate,
			"-k", s.keychain,
			"-P", s.opts.CertificatePassword,
			"-T", "/usr/bin/codesign",
			"-T", "/usr/bin/security",
		},
		append([]string{"list-keychains", "-d", "user", "-s", s.keychain}, searchList...),
		{"set-key-partition-list", "-S", partitionList, "-s", "-k", s.password, s.keychain},
	}

	for _, step := range steps {
		if err = s.security(ctx, step...); err != nil {
			return fmt.Errorf("%w: %s: %w", image.ErrSigning, step[0], err)
		}
	}

	return nil
}

// SignUnsignedNativeLibs signs every native library below root that codesign
// does not already verify, including libraries packed inside jars.
func (s *Signer) SignUnsignedNativeLibs(ctx context.Context, root string) error {
	if !s.created {
		return errKeychainNotReady
	}

	var signed int

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		switch {
		case isNativeLib(path):
			done, signErr := s.signIfUnsigned(ctx, path)
			if done {
				signed++
			}

			return signErr
		case strings.EqualFold(filepath.Ext(path), ".jar"):
			count, jarErr := s.signJar(ctx, path)
			signed += count

			return jarErr
		default:
			return nil
		}
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Signed native libraries", "root", root, "count", signed)

	return nil
}

// SignFile signs an arbitrary file, e.g. the disk image.
func (s *Signer) SignFile(ctx context.Context, path string) error {
	if !s.created {
		return errKeychainNotReady
	}

	logger.InfoKV(ctx, "Signing file", "path", path)

	args := []string{
		codesignTool,
		"-f",
		"--timestamp",
		"--options", "runtime",
		"--entitlements", s.entitlements,
		"-s", s.opts.Identity,
		"--keychain", s.keychain,
		path,
	}

	if _, err := s.exec.Execute(ctx, shell.Command{Args: args}); err != nil {
		return fmt.Errorf("%w: sign %s: %w", image.ErrSigning, path, err)
	}

	return nil
}

// DeleteKeychain removes the keychain. It is a no-op when nothing was created
// or it was already deleted.
func (s *Signer) DeleteKeychain(ctx context.Context) error {
	if !s.created {
		return nil
	}

	logger.InfoKV(ctx, "Deleting signing keychain", "keychain", s.keychain)

	if err := s.security(ctx, "delete-keychain", s.keychain); err != nil {
		return fmt.Errorf("%w: delete keychain: %w", image.ErrSigning, err)
	}

	s.created = false

	return nil
}

// signJar signs the unsigned native libraries inside a jar and writes them back.
func (s *Signer) signJar(ctx context.Context, jar string) (int, error) {
	scratch, err := os.MkdirTemp("", "jvm-assembler-jar-")
	if err != nil {
		return 0, err
	}

	defer func() {
		_ = os.RemoveAll(scratch)
	}()

	names, err := archive.ExtractMatching(jar, scratch, isNativeLib)
	if err != nil {
		return 0, fmt.Errorf("%w: read %s: %w", image.ErrSigning, jar, err)
	}

	replacements := make(map[string]string, len(names))

	for _, name := range names {
		local := filepath.Join(scratch, filepath.FromSlash(name))

		done, signErr := s.signIfUnsigned(ctx, local)
		if signErr != nil {
			return 0, signErr
		}

		if done {
			replacements[name] = local
		}
	}

	if err = archive.RewriteZip(jar, replacements); err != nil {
		return 0, fmt.Errorf("%w: update %s: %w", image.ErrSigning, jar, err)
	}

	if len(replacements) > 0 {
		logger.DebugKV(ctx, "Updated jar with signed libraries", "jar", jar, "count", len(replacements))
	}

	return len(replacements), nil
}

// signIfUnsigned signs path unless codesign already verifies it.
func (s *Signer) signIfUnsigned(ctx context.Context, path string) (bool, error) {
	_, err := s.exec.Execute(ctx, shell.Command{Args: []string{codesignTool, "--verify", path}})
	if err == nil {
		logger.DebugKV(ctx, "Already signed", "path", path)

		return false, nil
	}

	if !errors.Is(err, image.ErrExternalProcess) {
		return false, err
	}

	if err = s.SignFile(ctx, path); err != nil {
		return false, err
	}

	return true, nil
}

// searchList returns the current user keychain search list.
func (s *Signer) searchList(ctx context.Context) ([]string, error) {
	res, err := s.exec.Execute(ctx, shell.Command{Args: []string{securityTool, "list-keychains", "-d", "user"}})
	if err != nil {
		return nil, fmt.Errorf("%w: list keychains: %w", image.ErrSigning, err)
	}

	return parseSearchList(res.Output), nil
}

func (s *Signer) security(ctx context.Context, args ...string) error {
	_, err := s.exec.Execute(ctx, shell.Command{Args: append([]string{securityTool}, args...)})

	return err
}

// parseSearchList turns `security list-keychains` output (one quoted path per
// line) into a slice.
func parseSearchList(output string) []string {
	var paths []string

	for _, line := range strings.Split(output, "\n") {
		path := strings.Trim(strings.TrimSpace(line), `"`)
		if path != "" {
			paths = append(paths, path)
		}
	}

	return paths
}

func isNativeLib(path string) bool {
	_, ok := nativeLibExtensions[strings.ToLower(filepath.Ext(path))]

	return ok
}
