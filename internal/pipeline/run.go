package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/specialistvlad/llamabuild/internal/builderr"
	"github.com/specialistvlad/llamabuild/internal/ctxlog"
	"github.com/specialistvlad/llamabuild/internal/dag"
	"github.com/specialistvlad/llamabuild/internal/link"
	"github.com/specialistvlad/llamabuild/internal/metal"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/toolchain"
)

// Result is what a completed build produced.
type Result struct {
	Target target.BuildTarget

	Core    *toolchain.Artifact
	Binding *toolchain.Artifact
	CUDA    *toolchain.Artifact

	// PatchedMetalSource is the embedded runtime source, Metal builds only.
	PatchedMetalSource string

	BackendLinks  []link.Directive
	ArtifactLinks []link.Directive
	// LinkFile is the emitted directives file; empty on a dry run.
	LinkFile string

	Report *dag.Report
}

// Links returns the artifact directives followed by the backend ones, in
// the order a consumer should pass them to the linker.
func (r *Result) Links() []link.Directive {
	return append(append([]link.Directive(nil), r.ArtifactLinks...), r.BackendLinks...)
}

// Run plans the build, checks that every input exists, and executes the
// step graph. On a dry run it prints the plan instead of executing it.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	plan, err := p.Plan(ctx)
	if err != nil {
		return nil, err
	}
	if err := preflight(plan); err != nil {
		return nil, err
	}

	res := &Result{
		Target:        plan.Target,
		BackendLinks:  plan.BackendLinks(),
		ArtifactLinks: plan.ArtifactLinks(),
	}

	if p.cfg.DryRun {
		logger.Info("Dry run, printing plan.", "target", plan.Target.String())
		return res, Print(p.cfg.Stdout, plan)
	}

	if err := os.MkdirAll(p.cfg.OutDir, 0o755); err != nil {
		return nil, builderr.Filesystem("mkdir", p.cfg.OutDir, err)
	}

	g, steps := p.graph(plan, res)
	exec, err := dag.NewExecutor(g, steps)
	if err != nil {
		return nil, err
	}

	logger.Info("Starting build.", "target", plan.Target.String(), "out", p.cfg.OutDir)
	report, err := exec.Run(ctx)
	res.Report = report
	if err != nil {
		return res, err
	}
	logger.Info("Build finished.", "binding", res.Binding.Path, "duration", time.Since(start))
	return res, nil
}

// graph wires the steps of plan. Edges: embed -> core -> binding -> emit,
// cuda -> emit, generate -> emit.
func (p *Pipeline) graph(plan *Plan, res *Result) (*dag.Graph, map[string]dag.Step) {
	g := dag.New()
	steps := make(map[string]dag.Step)
	tc := plan.toolchain
	outDir := p.cfg.OutDir

	add := func(id string, s dag.Step, after ...string) {
		g.AddNode(id)
		steps[id] = s
		for _, dep := range after {
			// dep is always added before id.
			_ = g.AddEdge(dep, id)
		}
	}

	var coreAfter []string
	if plan.Metal != nil {
		add(StepEmbedMetal, func(ctx context.Context) error {
			out, err := metal.EmbedShader(plan.Metal.Shader, plan.Metal.Runtime, plan.Metal.Output)
			if err != nil {
				return err
			}
			res.PatchedMetalSource = out
			ctxlog.FromContext(ctx).Info("Embedded Metal shader.", "output", out)
			return nil
		})
		coreAfter = append(coreAfter, StepEmbedMetal)
	}

	add(StepCore, func(ctx context.Context) error {
		art, err := tc.Build(ctx, plan.Core, outDir)
		if err != nil {
			return err
		}
		res.Core = art
		return nil
	}, coreAfter...)

	emitAfter := []string{StepBinding}
	if plan.CUDA != nil {
		add(StepCUDA, func(ctx context.Context) error {
			art, err := tc.Build(ctx, plan.CUDA, outDir)
			if err != nil {
				return err
			}
			res.CUDA = art
			return nil
		})
		emitAfter = append(emitAfter, StepCUDA)
	}

	add(StepBinding, func(ctx context.Context) error {
		// The binding links the core's objects, not its archive.
		plan.Binding.AddObjects(res.Core.Objects...)
		art, err := tc.Build(ctx, plan.Binding, outDir)
		if err != nil {
			return err
		}
		res.Binding = art
		return nil
	}, StepCore)

	if gen := plan.Generate; gen != nil {
		add(StepGenerate, func(ctx context.Context) error {
			return tc.RunCommand(ctx, toolchain.Command{
				Path: gen.Command[0],
				Args: gen.Command[1:],
				Dir:  gen.Dir,
			})
		})
		emitAfter = append(emitAfter, StepGenerate)
	}

	add(StepEmit, func(ctx context.Context) error {
		path, err := writeLinks(outDir, p.cfg.LinkFormat, plan.Target.OS, res.Links())
		if err != nil {
			return err
		}
		res.LinkFile = path
		ctxlog.FromContext(ctx).Info("Link directives written.", "path", path, "format", string(p.cfg.LinkFormat))
		return nil
	}, emitAfter...)

	return g, steps
}

func writeLinks(outDir string, f link.Format, targetOS target.OS, ds []link.Directive) (string, error) {
	var buf bytes.Buffer
	if err := link.Emit(&buf, f, targetOS, ds); err != nil {
		return "", err
	}
	path := filepath.Join(outDir, LinkFileName)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", builderr.Filesystem("write", path, err)
	}
	return path, nil
}

// preflight reports every missing input at once.
func preflight(plan *Plan) error {
	var inputs []string
	if plan.Metal != nil {
		inputs = append(inputs, plan.Metal.Shader, plan.Metal.Runtime)
	}
	for _, src := range plan.Core.Sources {
		if plan.Metal != nil && src == plan.Metal.Output {
			continue
		}
		inputs = append(inputs, src)
	}
	inputs = append(inputs, plan.Binding.Sources...)
	if plan.CUDA != nil {
		inputs = append(inputs, plan.CUDA.Sources...)
	}

	var errs error
	for _, path := range inputs {
		if _, err := os.Stat(path); err != nil {
			errs = multierr.Append(errs, builderr.Filesystem("stat", path, err))
		}
	}
	return errs
}
