package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/jvm-assembler/internal/config"
	"github.com/oshokin/jvm-assembler/internal/logger"
	"github.com/oshokin/jvm-assembler/internal/service/assembler"
	"github.com/oshokin/jvm-assembler/internal/version"
)

var (
	// configPath stores the path to the assembly YAML file.
	configPath string
	// workDir is where inputs are staged and dist/ is produced.
	workDir string

	// rootCmd represents the base command.
	rootCmd = &cobra.Command{
		Use:   "jvm-assembler",
		Short: "Assemble native installers for JVM applications.",
		Long: `Builds a platform-native installer (DMG on macOS, EXE on Windows, DEB on Linux)
from a prebuilt application payload and a bundled runtime using jpackage, then
archives the result.

On macOS the disk image can be signed with a certificate imported into an
ephemeral keychain and notarized with notarytool.`,
		SilenceUsage: true,
	}

	// assembleCmd runs the whole pipeline.
	assembleCmd = &cobra.Command{
		Use:   "assemble",
		Short: "Stage inputs, build the installer and archive it.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &assembler.Options{
				ConfigPath: configPath,
				WorkDir:    workDir,
			}

			_, err := assembler.Run(ctx, options)

			return err
		},
	}

	// validateCmd checks the configuration and prints it with secrets hidden.
	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and print it with secrets hidden.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			data, err := config.Marshal(cfg, logger.RedactedPlaceholder)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
)

// Execute runs the jvm-assembler CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	assembleCmd.Flags().StringVarP(&workDir, "work-dir", "w", ".", "working directory for staged inputs and output")

	rootCmd.AddCommand(assembleCmd, validateCmd)
}
