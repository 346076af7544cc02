package testutil

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/llamabuild/internal/toolchain"
)

// Recorder is a toolchain.Runner that records every command instead of
// executing it. It fabricates the file each command would produce, so
// later steps find their inputs.
type Recorder struct {
	mu       sync.Mutex
	commands []toolchain.Command

	// FailOn makes matching commands fail with FailOutput.
	FailOn     func(toolchain.Command) bool
	FailOutput string
}

// Run implements toolchain.Runner.
func (r *Recorder) Run(_ context.Context, cmd toolchain.Command) ([]byte, error) {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()

	if r.FailOn != nil && r.FailOn(cmd) {
		return []byte(r.FailOutput), errors.New("exit status 1")
	}
	if out := OutputOf(cmd); out != "" {
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(out, []byte(cmd.String()), 0o644); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// Commands returns a copy of the recorded commands in execution order.
func (r *Recorder) Commands() []toolchain.Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]toolchain.Command(nil), r.commands...)
}

// CommandsFor returns the recorded commands whose executable is path.
func (r *Recorder) CommandsFor(path string) []toolchain.Command {
	var out []toolchain.Command
	for _, c := range r.Commands() {
		if c.Path == path {
			out = append(out, c)
		}
	}
	return out
}

// OutputOf returns the file cmd writes, or "" if it cannot tell.
func OutputOf(cmd toolchain.Command) string {
	for i, a := range cmd.Args {
		switch {
		case a == "-o" && i+1 < len(cmd.Args):
			return cmd.Args[i+1]
		case strings.HasPrefix(a, "/Fo"):
			return strings.TrimPrefix(a, "/Fo")
		case strings.HasPrefix(a, "/OUT:"):
			return strings.TrimPrefix(a, "/OUT:")
		case a == "crs" && i == 0 && len(cmd.Args) > 1:
			return cmd.Args[1]
		}
	}
	return ""
}

// HasArgs reports whether want appears in args as a contiguous run.
func HasArgs(args []string, want ...string) bool {
	if len(want) == 0 {
		return true
	}
	for i := 0; i+len(want) <= len(args); i++ {
		match := true
		for j := range want {
			if args[i+j] != want[j] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
