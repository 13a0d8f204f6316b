package builder

import (
	"context"
	"os"
	"path/filepath"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/service/codesign"
	"github.com/oshokin/jvm-assembler/internal/service/notary"
	"github.com/oshokin/jvm-assembler/internal/shell"
)

const (
	signingTool      = "codesign"
	notarizationTool = "notarytool"
)

// Mac builds an app image, repackages it as a DMG and, when signing is
// enabled, signs and notarizes the DMG.
type Mac struct {
	hooks

	// signer is set by BeforePack when signing is enabled.
	signer *codesign.Signer
}

// Platform implements Strategy.
func (*Mac) Platform() image.Platform {
	return image.PlatformMac
}

// BeforePack prepares the signing keychain and signs native libraries in the
// payload when asked to.
func (m *Mac) BeforePack(ctx context.Context, bc *BuildContext) error {
	if !bc.Config.SigningEnabled() {
		return nil
	}

	opts := bc.Config.Image.AppleCodeSigning
	m.signer = codesign.New(bc.Exec, bc.Redactor, opts, bc.Staged.MacEntitlements)

	if err := m.signer.Init(ctx); err != nil {
		return image.NewStageError(StageBeforePack, "security", err)
	}

	if !opts.SignNativeLibsInDeps {
		return nil
	}

	logger.InfoKV(ctx, "Signing native libraries in dependencies", "root", bc.Staged.SourceDir)

	if err := m.signer.SignUnsignedNativeLibs(ctx, bc.Staged.SourceDir); err != nil {
		return image.NewStageError(StageBeforePack, signingTool, err)
	}

	return nil
}

// PackArgs implements Strategy. The license is added at the DMG stage.
func (m *Mac) PackArgs(*BuildContext) []string {
	args := []string{"--type", "app-image"}

	if m.signer != nil {
		args = append(args, "--mac-sign", "--mac-signing-keychain", m.signer.Keychain())
	}

	return args
}

// PostPack converts the app image to a DMG, drops the app image and signs the
// DMG.
func (m *Mac) PostPack(ctx context.Context, bc *BuildContext) error {
	cfg := bc.Config
	short := bc.Version.Short()
	appImage := filepath.Join(bc.DistDir, cfg.Image.Name+".app")

	args := []string{
		bc.Staged.PackagingExecutable,
		"--name", cfg.Image.Name,
		"--app-version", short,
		"--type", "dmg",
		"--app-image", bc.rel(appImage),
		"--dest", bc.rel(bc.DistDir),
	}
	args = append(args, licenseArgs(bc)...)
	args = appendOptional(args, "--description", cfg.Image.Description)
	args = appendOptional(args, "--vendor", cfg.Image.Vendor)
	args = appendOptional(args, "--copyright", cfg.Image.Copyright)

	logger.InfoKV(ctx, "Converting app image to DMG", "app", appImage)

	if _, err := bc.Exec.Execute(ctx, shell.Command{Args: args, Dir: bc.WorkDir}); err != nil {
		return err
	}

	if err := os.RemoveAll(appImage); err != nil {
		return err
	}

	if m.signer == nil {
		return nil
	}

	dmg := filepath.Join(bc.DistDir, cfg.Image.Name+"-"+short+".dmg")
	if err := m.signer.SignFile(ctx, dmg); err != nil {
		return image.NewStageError(StagePack, signingTool, err)
	}

	return nil
}

// AfterPack notarizes the DMG and deletes the keychain.
func (m *Mac) AfterPack(ctx context.Context, bc *BuildContext, artifact string) error {
	if m.signer == nil {
		logger.Info(ctx, "Skipping notarization: Apple code signing is not enabled")

		return nil
	}

	err := notary.New(bc.Exec).Notarize(ctx, artifact, bc.Config.Image.AppleCodeSigning)
	if err != nil {
		return image.NewStageError(StageAfterPack, notarizationTool, err)
	}

	if err = m.signer.DeleteKeychain(ctx); err != nil {
		return image.NewStageError(StageAfterPack, "security", err)
	}

	return nil
}

// Close deletes the keychain if a failed step left it behind.
func (m *Mac) Close(ctx context.Context, _ *BuildContext) error {
	if m.signer == nil {
		return nil
	}

	return m.signer.DeleteKeychain(ctx)
}
