package toolchain

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/alessio/shellescape"

	"github.com/specialistvlad/llamabuild/internal/builderr"
)

// Command is one compiler, archiver or linker invocation.
type Command struct {
	Path string
	Args []string
	Dir  string
}

// String renders the command as a copy-pasteable shell line.
func (c Command) String() string {
	return shellescape.QuoteCommand(append([]string{c.Path}, c.Args...))
}

// Runner executes commands and returns their combined output.
type Runner interface {
	Run(ctx context.Context, cmd Command) ([]byte, error)
}

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	// Env replaces the child environment when non-nil.
	Env []string
}

func (r ExecRunner) Run(ctx context.Context, c Command) ([]byte, error) {
	cmd := exec.CommandContext(ctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	if r.Env != nil {
		cmd.Env = r.Env
	}
	return cmd.CombinedOutput()
}

// Error is a failed toolchain invocation. Output is the tool's own
// diagnostics, unmodified.
type Error struct {
	Command Command
	Output  string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s: %v", builderr.ErrToolchain, e.Command, e.Err)
	if out := strings.TrimSpace(e.Output); out != "" {
		b.WriteString("\n")
		b.WriteString(out)
	}
	return b.String()
}

func (e *Error) Unwrap() []error { return []error{builderr.ErrToolchain, e.Err} }
