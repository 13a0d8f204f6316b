// Package shelltest provides a recording shell.Executor for tests.
package shelltest

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oshokin/jvm-assembler/internal/shell"
)

// Handler simulates one external tool.
type Handler func(cmd shell.Command) (shell.Result, error)

// Recorder records every command and dispatches it to a handler registered for
// the program base name (with any ".exe" suffix dropped). Unhandled commands
// succeed with empty output.
type Recorder struct {
	mu       sync.Mutex
	commands []shell.Command
	handlers map[string]Handler
}

// New returns an empty Recorder.
func New() *Recorder {
	return &Recorder{handlers: make(map[string]Handler)}
}

// Handle registers fn for the program, e.g. "jpackage" or "security".
func (r *Recorder) Handle(program string, fn Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[program] = fn
}

// Execute implements shell.Executor.
func (r *Recorder) Execute(_ context.Context, cmd shell.Command) (shell.Result, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	handler := r.handlers[Program(cmd)]
	r.mu.Unlock()

	if handler == nil {
		return shell.Result{}, nil
	}

	return handler(cmd)
}

// Commands returns a copy of the recorded commands.
func (r *Recorder) Commands() []shell.Command {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]shell.Command(nil), r.commands...)
}

// Lines returns every recorded command as "program arg1 arg2 ...".
func (r *Recorder) Lines() []string {
	commands := r.Commands()
	lines := make([]string, 0, len(commands))

	for _, cmd := range commands {
		lines = append(lines, strings.Join(append([]string{Program(cmd)}, cmd.Args[1:]...), " "))
	}

	return lines
}

// Program returns the base name of the command's executable without ".exe".
func Program(cmd shell.Command) string {
	if len(cmd.Args) == 0 {
		return ""
	}

	return strings.TrimSuffix(filepath.Base(cmd.Args[0]), ".exe")
}

// Index returns the position of the first recorded line starting with prefix, or -1.
func (r *Recorder) Index(prefix string) int {
	for i, line := range r.Lines() {
		if strings.HasPrefix(line, prefix) {
			return i
		}
	}

	return -1
}

// Arg returns the value following flag in args, or "" when absent.
func Arg(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}

	return ""
}
