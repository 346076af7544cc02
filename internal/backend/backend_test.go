package backend

import (
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/llamabuild/internal/builderr"
	"github.com/specialistvlad/llamabuild/internal/env"
	"github.com/specialistvlad/llamabuild/internal/link"
	"github.com/specialistvlad/llamabuild/internal/manifest"
	"github.com/specialistvlad/llamabuild/internal/target"
	"github.com/specialistvlad/llamabuild/internal/unit"
)

func selectFor(t *testing.T, os target.OS, b target.Backend, e env.Map) *Plan {
	t.Helper()
	p, err := Select(target.BuildTarget{OS: os, Backend: b}, e, manifest.Default("/src"))
	require.NoError(t, err)
	return p
}

func TestSelectNone(t *testing.T) {
	p := selectFor(t, target.Linux, target.None, env.Map{})
	if diff := cmp.Diff(&Plan{Backend: target.None}, p); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectVendorBLAS(t *testing.T) {
	t.Run("openblas", func(t *testing.T) {
		p := selectFor(t, target.Linux, target.OpenBLAS, env.Map{})
		assert.Equal(t, []unit.Define{unit.Def("GGML_USE_OPENBLAS")}, p.CDefines)
		assert.Empty(t, p.CXXDefines)
		assert.Equal(t, []string{"/usr/local/include/openblas"}, p.CIncludeDirs)
		assert.Equal(t, []link.Directive{{Name: "openblas", Kind: link.Dynamic}}, p.Links)
	})

	t.Run("blis adds a search path", func(t *testing.T) {
		p := selectFor(t, target.Linux, target.BLIS, env.Map{})
		assert.Equal(t, []unit.Define{unit.Def("GGML_USE_OPENBLAS")}, p.CDefines)
		assert.Equal(t, []string{"/usr/local/include/blis"}, p.CIncludeDirs)
		assert.Equal(t, []link.Directive{{Name: "blis", Kind: link.Dynamic, SearchPaths: []string{"/usr/local/lib"}}}, p.Links)
	})
}

func TestSelectOpenCL(t *testing.T) {
	linux := selectFor(t, target.Linux, target.OpenCLCLBlast, env.Map{})
	assert.Equal(t, []string{filepath.Join("/src", "llama.cpp", "ggml-opencl.cpp")}, linux.CXXSources)
	assert.Empty(t, linux.CSources)
	assert.Equal(t, []unit.Define{unit.Def("GGML_USE_CLBLAST")}, linux.CDefines)
	assert.Equal(t, []unit.Define{unit.Def("GGML_USE_CLBLAST")}, linux.CXXDefines)
	assert.Equal(t, []link.Directive{link.Lib("OpenCL"), link.Lib("clblast")}, linux.Links)

	darwin := selectFor(t, target.Darwin, target.OpenCLCLBlast, env.Map{})
	assert.Equal(t, []link.Directive{link.FrameworkOf("OpenCL"), link.Lib("clblast")}, darwin.Links)
}

func TestSelectMetal(t *testing.T) {
	p := selectFor(t, target.Darwin, target.Metal, env.Map{})

	assert.True(t, p.EmbedShader)
	assert.Equal(t, []unit.Define{unit.Def("GGML_USE_METAL"), unit.Def("GGML_METAL_NDEBUG")}, p.CDefines)
	assert.Equal(t, []unit.Define{unit.Def("GGML_USE_METAL")}, p.CXXDefines)
	assert.Equal(t, []string{filepath.Join("/src", "llama.cpp")}, p.CIncludeDirs)

	var frameworks []string
	for _, d := range p.Links {
		assert.Equal(t, link.Framework, d.Kind)
		frameworks = append(frameworks, d.Name)
	}
	assert.Equal(t, []string{"Metal", "Foundation", "MetalPerformanceShaders", "MetalKit"}, frameworks)
}

func TestSelectCUDA(t *testing.T) {
	t.Run("default search paths", func(t *testing.T) {
		p := selectFor(t, target.Linux, target.CUDA, env.Map{})

		var names []string
		for _, d := range p.Links {
			names = append(names, d.Name)
			assert.Equal(t, []string{"/usr/local/cuda/lib64", "/opt/cuda/lib64"}, d.SearchPaths)
		}
		assert.Equal(t, []string{"cublas", "culibos", "cudart", "cublasLt", "pthread", "dl", "rt"}, names)

		require.NotNil(t, p.CUDA)
		assert.Equal(t, filepath.Join("/src", "llama.cpp", "ggml-cuda.cu"), p.CUDA.Source)
		assert.Equal(t, []string{"--forward-unknown-to-host-compiler", "-arch=native", "-DGGML_CUDA_DMMV_X=32"}, p.CUDA.Flags[:3])
		assert.Equal(t, "-Wno-pedantic", p.CUDA.Flags[len(p.CUDA.Flags)-1])
		assert.Empty(t, p.CSources, "cuda sources never join the C unit")
		assert.Empty(t, p.CXXSources, "cuda sources never join the C++ unit")
	})

	t.Run("toolkit path from environment", func(t *testing.T) {
		p := selectFor(t, target.Linux, target.CUDA, env.Map{"CUDA_PATH": "/opt/cuda-12"})
		want := []string{"/usr/local/cuda/lib64", "/opt/cuda/lib64", filepath.Join("/opt/cuda-12", "targets", "x86_64-linux", "lib")}
		assert.Equal(t, want, p.Links[0].SearchPaths)
	})

	t.Run("tuning override reaches nvcc flags", func(t *testing.T) {
		p := selectFor(t, target.Linux, target.CUDA, env.Map{"LLAMA_CUDA_DMMV_Y": "2"})
		assert.Contains(t, p.CUDA.Flags, "-DGGML_CUDA_DMMV_Y=2")
	})
}

func TestSelectIsPure(t *testing.T) {
	e := env.Map{"CUDA_PATH": "/opt/cuda"}
	for _, b := range []target.Backend{target.None, target.OpenBLAS, target.BLIS, target.OpenCLCLBlast, target.Metal, target.CUDA} {
		t.Run(b.String(), func(t *testing.T) {
			first := selectFor(t, target.Darwin, b, e)
			second := selectFor(t, target.Darwin, b, e)
			if diff := cmp.Diff(first, second); diff != "" {
				t.Errorf("plans differ (-first +second):\n%s", diff)
			}
		})
	}
}

func TestSelectUnknownBackend(t *testing.T) {
	_, err := Select(target.BuildTarget{OS: target.Linux, Backend: target.Backend(99)}, env.Map{}, manifest.Default("/src"))
	assert.ErrorIs(t, err, builderr.ErrConfiguration)
}
