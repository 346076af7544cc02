// Package backend turns the selected acceleration backend into the extra
// defines, sources, include directories and libraries it needs.
package backend

import (
	"path/filepath"

	"github.com/specialistvlad/llamabuild/internal/builderr"
	"github.com/specialistvlad/llamabuild/internal/cuda"
	"github.com/specialistvlad/llamabuild/internal/env"
	"github.com/specialistvlad/llamabuild/internal/flags"
	"github.com/specialistvlad/llamabuild/internal/link"
	"github.com/specialistvlad/llamabuild/internal/manifest"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/unit"
)

// CUDA toolkit library locations searched in order. The CUDA_PATH variant
// is appended when the variable is set.
var (
	cudaSearchPaths   = []string{"/usr/local/cuda/lib64", "/opt/cuda/lib64"}
	cudaPathEnv       = "CUDA_PATH"
	cudaPathLibSuffix = "targets/x86_64-linux/lib"
	cudaLibs          = []string{"cublas", "culibos", "cudart", "cublasLt", "pthread", "dl", "rt"}
)

// CUDAPlan is the separate nvcc unit. It is never merged into the C or C++
// units.
type CUDAPlan struct {
	Source      string
	IncludeDirs []string
	Flags       []string
}

// Plan is everything one backend adds on top of the core and binding units.
type Plan struct {
	Backend target.Backend

	CDefines       []unit.Define
	CXXDefines     []unit.Define
	CSources       []string
	CXXSources     []string
	CIncludeDirs   []string
	CXXIncludeDirs []string
	Links          []link.Directive

	// EmbedShader asks the pipeline to run the Metal shader embedder and
	// add its output to the C sources.
	EmbedShader bool
	CUDA        *CUDAPlan
}

// Select builds the plan for t. Source paths come from l; e is consulted
// only for CUDA. Equal inputs always give equal plans.
func Select(t target.BuildTarget, e env.Provider, l *manifest.Layout) (*Plan, error) {
	p := &Plan{Backend: t.Backend}

	switch t.Backend {
	case target.None:

	case target.OpenBLAS:
		p.CDefines = []unit.Define{unit.Def("GGML_USE_OPENBLAS")}
		p.CIncludeDirs = []string{"/usr/local/include/openblas"}
		p.Links = []link.Directive{link.Lib("openblas")}

	case target.BLIS:
		// BLIS is driven through the OpenBLAS-compatible interface.
		p.CDefines = []unit.Define{unit.Def("GGML_USE_OPENBLAS")}
		p.CIncludeDirs = []string{"/usr/local/include/blis"}
		p.Links = []link.Directive{link.Lib("blis", "/usr/local/lib")}

	case target.OpenCLCLBlast:
		p.CDefines = []unit.Define{unit.Def("GGML_USE_CLBLAST")}
		p.CXXDefines = []unit.Define{unit.Def("GGML_USE_CLBLAST")}
		p.CXXSources = []string{l.Abs(l.OpenCL)}
		if t.OS == target.Darwin {
			p.Links = []link.Directive{link.FrameworkOf("OpenCL"), link.Lib("clblast")}
		} else {
			p.Links = []link.Directive{link.Lib("OpenCL"), link.Lib("clblast")}
		}

	case target.Metal:
		p.CDefines = []unit.Define{unit.Def("GGML_USE_METAL"), unit.Def("GGML_METAL_NDEBUG")}
		p.CXXDefines = []unit.Define{unit.Def("GGML_USE_METAL")}
		p.CIncludeDirs = []string{filepath.Dir(l.Abs(l.Metal.Header))}
		p.Links = []link.Directive{
			link.FrameworkOf("Metal"),
			link.FrameworkOf("Foundation"),
			link.FrameworkOf("MetalPerformanceShaders"),
			link.FrameworkOf("MetalKit"),
		}
		p.EmbedShader = true

	case target.CUDA:
		searchPaths := CUDASearchPaths(e)
		for _, lib := range cudaLibs {
			p.Links = append(p.Links, link.Lib(lib, searchPaths...))
		}
		p.CDefines = []unit.Define{unit.Def("GGML_USE_CUBLAS")}
		p.CXXDefines = []unit.Define{unit.Def("GGML_USE_CUBLAS")}

		_, cxx := flags.Resolve(t.OS)
		p.CUDA = &CUDAPlan{
			Source:      l.Abs(l.CUDA.Source),
			IncludeDirs: []string{filepath.Dir(l.Abs(l.CUDA.Header))},
			Flags:       append(cuda.GenerateFlags(cuda.DefaultOverrides, e, cxx), "-Wno-pedantic"),
		}

	default:
		return nil, builderr.Configuration("unknown backend %d", int(t.Backend))
	}
	return p, nil
}

// CUDASearchPaths lists the CUDA toolkit library directories.
func CUDASearchPaths(e env.Provider) []string {
	paths := append([]string(nil), cudaSearchPaths...)
	if root := env.Get(e, cudaPathEnv); root != "" {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(cudaPathLibSuffix)))
	}
	return paths
}
