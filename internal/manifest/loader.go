// Package manifest loads the optional HCL file that describes where the
// native sources live. Every block and attribute is optional; anything left
// out keeps the default llama.cpp layout.
//
// Example:
//
//	core {
//	  sources = ["llama.cpp/ggml*.c"]
//	}
//
//	cuda {
//	  source = "${env("LLAMA_CUDA_SRC", "llama.cpp")}/ggml-cuda.cu"
//	}
//
//	generate {
//	  command = ["c-for-go", "-out", "internal", "llama.yml"]
//	}
package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"

	"github.com/specialistvlad/llamabuild/internal/builderr"
	"github.com/specialistvlad/llamabuild/internal/ctxlog"
	"github.com/specialistvlad/llamabuild/internal/env"
)

var errNoMatch = errors.New("pattern matched no files")

// fileRoot decodes every top-level block a manifest may contain.
type fileRoot struct {
	Core     *unitBlock     `hcl:"core,block"`
	Binding  *unitBlock     `hcl:"binding,block"`
	Metal    *metalBlock    `hcl:"metal,block"`
	OpenCL   *openCLBlock   `hcl:"opencl,block"`
	CUDA     *cudaBlock     `hcl:"cuda,block"`
	Generate *generateBlock `hcl:"generate,block"`
}

type unitBlock struct {
	Name        string   `hcl:"name,optional"`
	Sources     []string `hcl:"sources,optional"`
	IncludeDirs []string `hcl:"include_dirs,optional"`
	Defines     []string `hcl:"defines,optional"`
}

type metalBlock struct {
	Shader  string `hcl:"shader,optional"`
	Runtime string `hcl:"runtime,optional"`
	Header  string `hcl:"header,optional"`
}

type openCLBlock struct {
	Source string `hcl:"source,optional"`
}

type cudaBlock struct {
	Source string `hcl:"source,optional"`
	Header string `hcl:"header,optional"`
}

type generateBlock struct {
	Command []string `hcl:"command"`
	Dir     string   `hcl:"dir,optional"`
}

// Loader reads manifests. Expressions may call env(name[, default]), which
// reads through the injected provider.
type Loader struct {
	env env.Provider
}

// NewLoader creates a manifest loader backed by e.
func NewLoader(e env.Provider) *Loader {
	return &Loader{env: e}
}

// Load returns the layout for sourceDir. When path is empty the default
// manifest file inside sourceDir is used if it exists; otherwise the default
// layout is returned unchanged. An explicit path that does not exist is an
// error.
func (l *Loader) Load(ctx context.Context, sourceDir, path string) (*Layout, error) {
	logger := ctxlog.FromContext(ctx)
	layout := Default(sourceDir)

	if path == "" {
		candidate := filepath.Join(sourceDir, DefaultFileName)
		if _, err := os.Stat(candidate); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				logger.Debug("No manifest found, using default layout.", "source_dir", sourceDir)
				return layout, nil
			}
			return nil, builderr.Filesystem("stat", candidate, err)
		}
		path = candidate
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, builderr.Filesystem("read", path, err)
	}
	if err := l.decode(src, path, layout); err != nil {
		return nil, err
	}

	logger.Debug("Manifest loaded.", "path", path, "core_sources", len(layout.Core.Sources), "binding_sources", len(layout.Binding.Sources), "generate", layout.Generate != nil)
	return layout, nil
}

// decode parses src and overlays every attribute it sets onto layout.
func (l *Loader) decode(src []byte, filename string, layout *Layout) error {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return builderr.Configuration("failed to parse manifest %s: %s", filename, diags.Error())
	}

	var root fileRoot
	diags = gohcl.DecodeBody(file.Body, l.evalContext(), &root)
	if diags.HasErrors() {
		return builderr.Configuration("failed to decode manifest %s: %s", filename, diags.Error())
	}
	overlayUnit(&layout.Core, root.Core)
	overlayUnit(&layout.Binding, root.Binding)
	if m := root.Metal; m != nil {
		setIf(&layout.Metal.Shader, m.Shader)
		setIf(&layout.Metal.Runtime, m.Runtime)
		setIf(&layout.Metal.Header, m.Header)
	}
	if o := root.OpenCL; o != nil {
		setIf(&layout.OpenCL, o.Source)
	}
	if c := root.CUDA; c != nil {
		setIf(&layout.CUDA.Source, c.Source)
		setIf(&layout.CUDA.Header, c.Header)
	}
	if g := root.Generate; g != nil {
		if len(g.Command) == 0 {
			return builderr.Configuration("manifest %s: generate.command must not be empty", filename)
		}
		layout.Generate = &Generate{Command: g.Command, Dir: g.Dir}
	}
	return nil
}

func (l *Loader) evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"env": envFunc(l.env),
		},
	}
}

// envFunc implements env(name[, default]) for manifest expressions.
func envFunc(p env.Provider) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "name", Type: cty.String},
		},
		VarParam: &function.Parameter{Name: "default", Type: cty.String},
		Type:     function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 2 {
				return cty.NilVal, fmt.Errorf("env takes at most two arguments, got %d", len(args))
			}
			if v, ok := p.Lookup(args[0].AsString()); ok && v != "" {
				return cty.StringVal(v), nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return cty.StringVal(""), nil
		},
	})
}

func overlayUnit(dst *UnitLayout, b *unitBlock) {
	if b == nil {
		return
	}
	setIf(&dst.Name, b.Name)
	if b.Sources != nil {
		dst.Sources = b.Sources
	}
	if b.IncludeDirs != nil {
		dst.IncludeDirs = b.IncludeDirs
	}
	if b.Defines != nil {
		dst.Defines = b.Defines
	}
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
