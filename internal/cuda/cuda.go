// Package cuda builds the nvcc command-line flags, including the kernel
// tuning parameters that can be overridden from the environment.
package cuda

import (
	"github.com/specialistvlad/llamabuild/internal/env"
)

// EnvOverride maps an environment variable onto a compiler define. Default
// is used verbatim when the variable is unset.
type EnvOverride struct {
	EnvVar  string
	Default string
	Define  string
}

// DefaultOverrides is the tuning table for the CUDA kernels, in emission
// order: DMMV tile X, DMMV tile Y, k-quant iterations.
var DefaultOverrides = []EnvOverride{
	{EnvVar: "LLAMA_CUDA_DMMV_X", Default: "32", Define: "GGML_CUDA_DMMV_X"},
	{EnvVar: "LLAMA_CUDA_DMMV_Y", Default: "1", Define: "GGML_CUDA_DMMV_Y"},
	{EnvVar: "LLAMA_CUDA_KQUANTS_ITER", Default: "2", Define: "K_QUANTS_PER_ITERATION"},
}

// DriverFlags are always passed to nvcc first. Unknown flags go to the host
// C++ compiler.
var DriverFlags = []string{"--forward-unknown-to-host-compiler", "-arch=native"}

// Resolve returns "-D<define>=<value>" for every entry, in table order.
func Resolve(table []EnvOverride, e env.Provider) []string {
	out := make([]string, 0, len(table))
	for _, o := range table {
		v, ok := e.Lookup(o.EnvVar)
		if !ok {
			v = o.Default
		}
		out = append(out, "-D"+o.Define+"="+v)
	}
	return out
}

// GenerateFlags returns the driver flags, then the resolved tuning defines,
// then cxxFlags. nvcc hands most of the latter to the host compiler.
func GenerateFlags(table []EnvOverride, e env.Provider, cxxFlags []string) []string {
	out := append([]string(nil), DriverFlags...)
	out = append(out, Resolve(table, e)...)
	return append(out, cxxFlags...)
}
