package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/llamabuild/internal/env"
	"github.com/specialistvlad/llamabuild/internal/link"
	"github.com/specialistvlad/llamabuild/internal/manifest"
	"github.com/specialistvlad/llamabuild/internal/pipeline"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/toolchain"
)

// buildEnvKeys are the variables that can change the build.
var buildEnvKeys = []string{
	"CC", "CXX", "AR", "NVCC", "CUDA_PATH",
	"LLAMA_CUDA_DMMV_X", "LLAMA_CUDA_DMMV_Y", "LLAMA_CUDA_KQUANTS_ITER",
}

// Run executes one build based on the app's configuration.
func (a *App) Run(ctx context.Context) (*pipeline.Result, error) {
	ctx = a.Context(ctx)
	cfg := a.config
	a.logger.Debug("App.Run method started.")

	// Reject bad targets before the manifest or source tree is read.
	t, err := target.New(cfg.OS, cfg.Backends)
	if err != nil {
		return nil, err
	}

	layout, err := manifest.NewLoader(a.env).Load(ctx, cfg.SourceDir, cfg.ManifestPath)
	if err != nil {
		return nil, err
	}

	format, err := link.ParseFormat(cfg.LinkFormat)
	if err != nil {
		return nil, err
	}

	tools := a.tools()
	a.logger.Debug("Toolchain configured.", "cc", tools.CC, "cxx", tools.CXX, "ar", tools.AR, "nvcc", tools.NVCC)
	a.logger.Debug("Build environment.", "vars", env.Snapshot(a.env, buildEnvKeys...))

	var opts []pipeline.Option
	if a.runner != nil {
		opts = append(opts, pipeline.WithRunner(a.runner))
	}
	p := pipeline.New(pipeline.Config{
		OS:         cfg.OS,
		Backends:   cfg.Backends,
		Layout:     layout,
		OutDir:     cfg.OutDir,
		Env:        a.env,
		Tools:      tools,
		Jobs:       cfg.Jobs,
		OptLevel:   cfg.OptLevel,
		LinkFormat: format,
		DryRun:     cfg.DryRun,
		Stdout:     a.outW,
	}, opts...)

	a.logger.Info("🚀 Building native library.", "target", t.String(), "source", cfg.SourceDir)
	res, err := p.Run(ctx)
	if err != nil {
		return res, err
	}
	if cfg.DryRun {
		return res, nil
	}

	fmt.Fprintf(a.outW, "built %s\n", res.Binding.Path)
	fmt.Fprintf(a.outW, "link directives: %s\n", res.LinkFile)
	a.logger.Info("🏁 Build finished.")
	return res, nil
}

// tools resolves executables: explicit config first, then the environment.
// Fields left empty fall back to the toolchain defaults.
func (a *App) tools() toolchain.Tools {
	pick := func(explicit, key string) string {
		if explicit != "" {
			return explicit
		}
		return env.Get(a.env, key)
	}
	return toolchain.Tools{
		CC:   pick(a.config.CC, "CC"),
		CXX:  pick(a.config.CXX, "CXX"),
		AR:   pick(a.config.AR, "AR"),
		NVCC: pick(a.config.NVCC, "NVCC"),
	}
}
