// Package version exposes build metadata for jvm-assembler.
//
// Variables Version, Commit, and BuildTime are injected at build time via
// Go ldflags and default to sensible values for local builds.
// Short is recorded in assembly manifests; Full is printed by the version subcommand.
package version
