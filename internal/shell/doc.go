// Package shell runs external tools for the assembler.
//
// An Executor accepts a command vector with an optional working directory and
// environment overrides, captures the combined output and reports non-zero
// exits as *ExitError. Command lines are logged shell-quoted with secrets
// redacted.
package shell
