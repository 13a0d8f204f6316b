package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/oshokin/jvm-assembler/internal/domain/image"
	"github.com/oshokin/jvm-assembler/internal/logger"
)

// Command is one invocation of an external tool.
type Command struct {
	// Args is the command vector; Args[0] is the program.
	Args []string
	// Dir is the working directory; empty means the current one.
	Dir string
	// Env overrides variables of the parent environment for this child only.
	Env map[string]string
}

// Result is the captured output of a finished command.
type Result struct {
	// Output is the combined stdout and stderr.
	Output string
}

// Executor runs commands. Implementations must not mutate the parent environment.
type Executor interface {
	Execute(ctx context.Context, cmd Command) (Result, error)
}

// ExitError reports a command that could not start or exited non-zero.
type ExitError struct {
	// Command is the redacted, quoted command line.
	Command string
	// Output is the redacted captured output.
	Output string
	// Err is the error from os/exec.
	Err error
}

// Error implements error.
func (e *ExitError) Error() string {
	output := strings.TrimSpace(e.Output)
	if output == "" {
		return fmt.Sprintf("%s: %v", e.Command, e.Err)
	}

	return fmt.Sprintf("%s: %v\n%s", e.Command, e.Err, output)
}

// Unwrap lets errors.Is match ErrExternalProcess and the exec error.
func (e *ExitError) Unwrap() []error {
	return []error{image.ErrExternalProcess, e.Err}
}

var errEmptyCommand = errors.New("empty command")

// Shell is the os/exec backed Executor.
type Shell struct {
	// redactor hides secrets in logged command lines and outputs.
	redactor *logger.Redactor
}

// New creates a Shell that redacts the given secrets when logging.
func New(redactor *logger.Redactor) *Shell {
	return &Shell{redactor: redactor}
}

// Execute runs the command and waits for it to exit.
func (s *Shell) Execute(ctx context.Context, cmd Command) (Result, error) {
	if len(cmd.Args) == 0 {
		return Result{}, errEmptyCommand
	}

	line := s.redactor.Redact(Quote(cmd.Args))

	logger.DebugKV(ctx, "Executing", "command", line, "dir", cmd.Dir)

	//nolint:gosec // Running configured tools is the whole point of this package.
	c := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	c.Dir = cmd.Dir
	c.Env = MergeEnv(os.Environ(), cmd.Env)

	var output bytes.Buffer

	c.Stdout = &output
	c.Stderr = &output

	err := c.Run()
	captured := s.redactor.Redact(output.String())

	if captured != "" {
		logger.Debug(ctx, captured)
	}

	if err != nil {
		return Result{Output: captured}, &ExitError{Command: line, Output: captured, Err: err}
	}

	return Result{Output: output.String()}, nil
}

// MergeEnv returns base with overrides applied. Keys are matched
// case-insensitively so that Path and PATH collapse on Windows.
func MergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	merged := make([]string, 0, len(base)+len(overrides))

	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if _, overridden := lookupFold(overrides, key); overridden {
			continue
		}

		merged = append(merged, kv)
	}

	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	for _, key := range keys {
		merged = append(merged, key+"="+overrides[key])
	}

	return merged
}

// Quote renders args as a copy-pasteable shell line.
func Quote(args []string) string {
	quoted := make([]string, 0, len(args))

	for _, arg := range args {
		q, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			q = fmt.Sprintf("%q", arg)
		}

		quoted = append(quoted, q)
	}

	return strings.Join(quoted, " ")
}

func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}

	return "", false
}
