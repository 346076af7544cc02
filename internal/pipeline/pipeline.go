// Package pipeline assembles and runs a native build of the inference
// library: a static C core, an optional CUDA archive, and a shared C++
// binding that links the core's objects. The work is expressed as a step
// graph and executed in dependency order.
package pipeline

import (
	"context"
	"io"
	"path/filepath"

	"github.com/specialistvlad/llamabuild/internal/backend"
	"github.com/specialistvlad/llamabuild/internal/ctxlog"
	"github.com/specialistvlad/llamabuild/internal/env"
	"github.com/specialistvlad/llamabuild/internal/flags"
	"github.com/specialistvlad/llamabuild/internal/link"
	"github.com/specialistvlad/llamabuild/internal/manifest"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/toolchain"
	"github.com/specialistvlad/llamabuild/internal/unit"
)

// Step IDs of the build graph.
const (
	StepEmbedMetal = "embed-metal-shader"
	StepCore       = "compile-core"
	StepCUDA       = "compile-cuda"
	StepBinding    = "compile-binding"
	StepGenerate   = "generate-bindings"
	StepEmit       = "emit-links"
)

// LinkFileName is written into the output directory by the emit step.
const LinkFileName = "link.txt"

// Config is one build invocation.
type Config struct {
	// OS and Backends are validated into a target.BuildTarget by Plan.
	OS       string
	Backends []string

	Layout *manifest.Layout
	OutDir string
	Env    env.Provider

	Tools    toolchain.Tools
	Jobs     int
	OptLevel string

	LinkFormat link.Format
	DryRun     bool
	// Stdout receives the dry-run table.
	Stdout io.Writer
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithRunner replaces the process runner used for every tool invocation.
func WithRunner(r toolchain.Runner) Option {
	return func(p *Pipeline) { p.runner = r }
}

// Pipeline plans and runs one build.
type Pipeline struct {
	cfg    Config
	runner toolchain.Runner
}

// New returns a pipeline for cfg. Nothing is validated until Plan.
func New(cfg Config, opts ...Option) *Pipeline {
	if cfg.Env == nil {
		cfg.Env = env.OS{}
	}
	if cfg.Stdout == nil {
		cfg.Stdout = io.Discard
	}
	if cfg.LinkFormat == "" {
		cfg.LinkFormat = link.FormatFlags
	}
	p := &Pipeline{cfg: cfg}
	for _, o := range opts {
		o(p)
	}
	return p
}

// MetalEmbed names the inputs and output of the shader embedding step.
type MetalEmbed struct {
	Shader  string
	Runtime string
	Output  string
}

// Plan is the fully resolved build, before anything is compiled.
type Plan struct {
	Target  target.BuildTarget
	Backend *backend.Plan

	Core    *unit.Unit
	Binding *unit.Unit
	// CUDA is nil unless the CUDA backend is selected.
	CUDA *unit.Unit
	// Metal is nil unless the Metal backend is selected.
	Metal *MetalEmbed

	Generate *manifest.Generate

	toolchain *toolchain.Toolchain
	outDir    string
}

// Plan validates the target and resolves every unit. Target validation
// happens before any filesystem access.
func (p *Pipeline) Plan(ctx context.Context) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)

	t, err := target.New(p.cfg.OS, p.cfg.Backends)
	if err != nil {
		return nil, err
	}
	logger.Debug("Build target resolved.", "target", t.String())

	cFlags, cxxFlags := flags.Resolve(t.OS)

	l := p.cfg.Layout
	if l == nil {
		l = manifest.Default(".")
	}
	bp, err := backend.Select(t, p.cfg.Env, l)
	if err != nil {
		return nil, err
	}

	opts := []toolchain.Option{toolchain.WithTools(p.cfg.Tools), toolchain.WithJobs(p.cfg.Jobs)}
	if p.runner != nil {
		opts = append(opts, toolchain.WithRunner(p.runner))
	}
	tc := toolchain.New(t.OS, p.cfg.OptLevel, opts...)

	plan := &Plan{
		Target:    t,
		Backend:   bp,
		toolchain: tc,
		outDir:    p.cfg.OutDir,
	}
	if gen := l.Generate; gen != nil {
		dir := l.SourceDir
		if gen.Dir != "" {
			dir = l.Abs(gen.Dir)
		}
		plan.Generate = &manifest.Generate{Command: gen.Command, Dir: dir}
	}

	coreSources, err := l.ExpandSources(l.Core.Sources)
	if err != nil {
		return nil, err
	}
	core := unit.New(l.Core.Name, unit.C, unit.Static).
		AddFlags(cFlags...).
		AddIncludeDirs(l.AbsAll(l.Core.IncludeDirs)...).
		AddIncludeDirs(bp.CIncludeDirs...).
		AddDefines(parseDefines(l.Core.Defines)...).
		AddDefines(bp.CDefines...)
	if bp.EmbedShader {
		plan.Metal = &MetalEmbed{
			Shader:  l.Abs(l.Metal.Shader),
			Runtime: l.Abs(l.Metal.Runtime),
			Output:  filepath.Join(p.cfg.OutDir, "metal", filepath.Base(l.Metal.Runtime)),
		}
		core.AddSources(plan.Metal.Output)
	}
	core.AddSources(bp.CSources...).AddSources(coreSources...)
	plan.Core = core

	bindingSources, err := l.ExpandSources(l.Binding.Sources)
	if err != nil {
		return nil, err
	}
	plan.Binding = unit.New(l.Binding.Name, unit.CXX, unit.Shared).
		AddFlags(cxxFlags...).
		AddIncludeDirs(l.AbsAll(l.Binding.IncludeDirs)...).
		AddIncludeDirs(bp.CXXIncludeDirs...).
		AddDefines(parseDefines(l.Binding.Defines)...).
		AddDefines(bp.CXXDefines...).
		AddSources(bindingSources...).
		AddSources(bp.CXXSources...).
		AddLinks(bp.Links...)

	if bp.CUDA != nil {
		plan.CUDA = unit.New(l.Core.Name+"-cuda", unit.CUDA, unit.Static).
			AddFlags(bp.CUDA.Flags...).
			AddIncludeDirs(bp.CUDA.IncludeDirs...).
			AddSources(bp.CUDA.Source)
	}

	logger.Debug("Build planned.",
		"core_sources", len(plan.Core.Sources),
		"binding_sources", len(plan.Binding.Sources),
		"cuda", plan.CUDA != nil,
		"metal", plan.Metal != nil,
	)
	return plan, nil
}

// BackendLinks are the libraries the selected backend needs.
func (pl *Plan) BackendLinks() []link.Directive {
	return append([]link.Directive(nil), pl.Backend.Links...)
}

// ArtifactLinks are the directives a consumer needs for the artifacts this
// build produces: the binding, then the CUDA archive, then the core archive.
func (pl *Plan) ArtifactLinks() []link.Directive {
	out := []link.Directive{
		{Name: pl.Binding.Name, Kind: link.Dynamic, SearchPaths: []string{pl.outDir}},
	}
	if pl.CUDA != nil {
		out = append(out, link.Directive{Name: pl.CUDA.Name, Kind: link.Static, SearchPaths: []string{pl.outDir}})
	}
	out = append(out, link.Directive{Name: pl.Core.Name, Kind: link.Static, SearchPaths: []string{pl.outDir}})
	return out
}

// ArtifactPath is where u's artifact will be written.
func (pl *Plan) ArtifactPath(u *unit.Unit) string {
	return pl.toolchain.ArtifactPath(u, pl.outDir)
}

func parseDefines(ss []string) []unit.Define {
	out := make([]unit.Define, len(ss))
	for i, s := range ss {
		out[i] = unit.ParseDefine(s)
	}
	return out
}
