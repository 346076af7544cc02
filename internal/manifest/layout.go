package manifest

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar"

	"github.com/specialistvlad/llamabuild/internal/builderr"
)

// DefaultFileName is looked up in the source directory when no manifest path
// is given.
const DefaultFileName = "llamabuild.hcl"

// UnitLayout lists the inputs of one compilation unit. Paths are relative to
// the source directory and may be doublestar globs.
type UnitLayout struct {
	Name        string
	Sources     []string
	IncludeDirs []string
	Defines     []string
}

// MetalLayout locates the Metal backend inputs.
type MetalLayout struct {
	Shader  string
	Runtime string
	Header  string
}

// CUDALayout locates the CUDA backend inputs.
type CUDALayout struct {
	Source string
	Header string
}

// Generate is the external header-to-binding generator. It runs beside the
// native compilation and shares no inputs with it.
type Generate struct {
	Command []string
	Dir     string
}

// Layout is where the native sources live inside the source directory.
type Layout struct {
	SourceDir string

	Core    UnitLayout
	Binding UnitLayout
	Metal   MetalLayout
	OpenCL  string
	CUDA    CUDALayout

	Generate *Generate
}

// Default returns the llama.cpp layout used by the Go binding: the upstream
// checkout under llama.cpp/ and binding.cpp beside it.
func Default(sourceDir string) *Layout {
	return &Layout{
		SourceDir: sourceDir,
		Core: UnitLayout{
			Name: "ggml",
			Sources: []string{
				"llama.cpp/ggml.c",
				"llama.cpp/ggml-alloc.c",
				"llama.cpp/ggml-backend.c",
				"llama.cpp/ggml-quants.c",
			},
			IncludeDirs: []string{"llama.cpp"},
			Defines:     []string{"_GNU_SOURCE", "GGML_USE_K_QUANTS"},
		},
		Binding: UnitLayout{
			Name: "binding",
			Sources: []string{
				"llama.cpp/common/common.cpp",
				"llama.cpp/llama.cpp",
				"binding.cpp",
			},
			IncludeDirs: []string{"llama.cpp/common", "llama.cpp", "include_shims"},
		},
		Metal: MetalLayout{
			Shader:  "llama.cpp/ggml-metal.metal",
			Runtime: "llama.cpp/ggml-metal.m",
			Header:  "llama.cpp/ggml-metal.h",
		},
		OpenCL: "llama.cpp/ggml-opencl.cpp",
		CUDA: CUDALayout{
			Source: "llama.cpp/ggml-cuda.cu",
			Header: "llama.cpp/ggml-cuda.h",
		},
	}
}

// Abs resolves p against the source directory.
func (l *Layout) Abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(l.SourceDir, filepath.FromSlash(p))
}

// AbsAll resolves every path in ps.
func (l *Layout) AbsAll(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = l.Abs(p)
	}
	return out
}

// ExpandSources resolves ps against the source directory, expanding glob
// patterns in place. A pattern matching nothing is a filesystem error.
func (l *Layout) ExpandSources(ps []string) ([]string, error) {
	var out []string
	for _, p := range ps {
		abs := l.Abs(p)
		if !isGlob(p) {
			out = append(out, abs)
			continue
		}
		matches, err := doublestar.Glob(abs)
		if err != nil {
			return nil, builderr.Filesystem("glob", p, err)
		}
		if len(matches) == 0 {
			return nil, builderr.Filesystem("glob", p, errNoMatch)
		}
		sort.Strings(matches)
		out = append(out, matches...)
	}
	return out, nil
}

func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[{")
}
