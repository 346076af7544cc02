// Package toolchain compiles compilation units into artifacts by invoking
// the native compiler, archiver and linker. Source files of one unit are
// compiled to objects concurrently; archiving and linking happen once all
// objects exist.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/specialistvlad/llamabuild/internal/builderr"
	"github.com/specialistvlad/llamabuild/internal/ctxlog"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/unit"
)

// Artifact is the output of one compiled unit.
type Artifact struct {
	Name    string
	Kind    unit.Kind
	Path    string
	Objects []string
}

// Toolchain builds units for one target OS.
type Toolchain struct {
	os     target.OS
	tools  Tools
	jobs   int
	runner Runner
	driver driver
}

// Option configures a Toolchain.
type Option func(*Toolchain)

// WithTools overrides the tool executables. Empty fields keep defaults.
func WithTools(t Tools) Option {
	return func(tc *Toolchain) {
		setIf(&tc.tools.CC, t.CC)
		setIf(&tc.tools.CXX, t.CXX)
		setIf(&tc.tools.AR, t.AR)
		setIf(&tc.tools.NVCC, t.NVCC)
		setIf(&tc.tools.Link, t.Link)
	}
}

// WithJobs bounds the number of concurrent compiler processes per unit.
func WithJobs(n int) Option {
	return func(tc *Toolchain) {
		if n > 0 {
			tc.jobs = n
		}
	}
}

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(tc *Toolchain) { tc.runner = r }
}

// New returns a toolchain for os with the given optimisation level ("" for
// the compiler default).
func New(os target.OS, optLevel string, opts ...Option) *Toolchain {
	tc := &Toolchain{
		os:     os,
		tools:  DefaultTools(os),
		jobs:   runtime.NumCPU(),
		runner: ExecRunner{},
	}
	for _, o := range opts {
		o(tc)
	}
	tc.driver = newDriver(os, tc.tools, optLevel)
	return tc
}

// Tools reports the executables in use.
func (tc *Toolchain) Tools() Tools { return tc.tools }

// ArtifactPath is where Build places the artifact of u inside outDir.
func (tc *Toolchain) ArtifactPath(u *unit.Unit, outDir string) string {
	if u.Kind == unit.Shared {
		return filepath.Join(outDir, tc.driver.sharedName(u.Name))
	}
	return filepath.Join(outDir, tc.driver.staticName(u.Name))
}

// Build compiles every source of u into outDir/obj/<unit> and then archives
// or links them, together with u.Objects, into the unit's artifact.
func (tc *Toolchain) Build(ctx context.Context, u *unit.Unit, outDir string) (*Artifact, error) {
	logger := ctxlog.FromContext(ctx).With("unit", u.Name)

	objDir := filepath.Join(outDir, "obj", u.Name)
	if err := os.MkdirAll(objDir, 0o755); err != nil {
		return nil, builderr.Filesystem("mkdir", objDir, err)
	}

	objects := tc.objectPaths(u.Sources, objDir)
	logger.Info("Compiling unit.", "language", u.Language.String(), "sources", len(u.Sources), "jobs", tc.jobs)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(tc.jobs)
	for i, src := range u.Sources {
		cmd := tc.driver.compile(u, src, objects[i])
		g.Go(func() error {
			return tc.run(gctx, cmd)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	art := &Artifact{
		Name:    u.Name,
		Kind:    u.Kind,
		Path:    tc.ArtifactPath(u, outDir),
		Objects: objects,
	}
	all := append(append([]string(nil), objects...), u.Objects...)

	var cmd Command
	if u.Kind == unit.Shared {
		cmd = tc.driver.linkShared(u, art.Path, all)
	} else {
		// Archivers append to an existing archive, so start clean.
		if err := os.Remove(art.Path); err != nil && !os.IsNotExist(err) {
			return nil, builderr.Filesystem("remove", art.Path, err)
		}
		cmd = tc.driver.archive(art.Path, all)
	}
	if err := tc.run(ctx, cmd); err != nil {
		return nil, err
	}

	logger.Info("Unit built.", "kind", u.Kind.String(), "artifact", art.Path)
	return art, nil
}

// RunCommand executes an arbitrary command through the toolchain's runner,
// with the same logging and error handling as compiler invocations.
func (tc *Toolchain) RunCommand(ctx context.Context, cmd Command) error {
	return tc.run(ctx, cmd)
}

func (tc *Toolchain) run(ctx context.Context, cmd Command) error {
	ctxlog.FromContext(ctx).Debug("Running command.", "command", cmd.String())
	out, err := tc.runner.Run(ctx, cmd)
	if err != nil {
		return &Error{Command: cmd, Output: string(out), Err: err}
	}
	return nil
}

// objectPaths maps each source to an object file named after it, adding a
// numeric suffix when two sources share a base name.
func (tc *Toolchain) objectPaths(sources []string, objDir string) []string {
	out := make([]string, len(sources))
	used := make(map[string]int)
	for i, src := range sources {
		base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		name := base
		if n := used[base]; n > 0 {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		used[base]++
		out[i] = filepath.Join(objDir, name+tc.driver.objectExt())
	}
	return out
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
