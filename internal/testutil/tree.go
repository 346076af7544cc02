package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// MetalRuntimeSource is a minimal ggml-metal.m containing the runtime shader
// load that the embedder replaces.
const MetalRuntimeSource = `@implementation ggml_metal
NSError * error = nil;
NSString * sourcePath = [bundle pathForResource:@"ggml-metal" ofType:@"metal"];
NSString * src = [NSString stringWithContentsOfFile:sourcePath encoding:NSUTF8StringEncoding error:&error];
@end
`

// MetalShaderSource is a small shader with characters that need escaping.
const MetalShaderSource = "#include <metal_stdlib>\nkernel void kernel_add(device const float * src0) {\n  // \"add\"\n}\n"

// SourceTree writes a fake llama.cpp checkout matching the default layout
// into a fresh temporary directory and returns its path. extra files are
// written on top, keyed by slash-separated relative path.
func SourceTree(t *testing.T, extra map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	files := map[string]string{
		"llama.cpp/ggml.c":            "int ggml;\n",
		"llama.cpp/ggml-alloc.c":      "int ggml_alloc;\n",
		"llama.cpp/ggml-backend.c":    "int ggml_backend;\n",
		"llama.cpp/ggml-quants.c":     "int ggml_quants;\n",
		"llama.cpp/ggml.h":            "#pragma once\n",
		"llama.cpp/llama.cpp":         "int llama;\n",
		"llama.cpp/common/common.cpp": "int common;\n",
		"llama.cpp/ggml-opencl.cpp":   "int opencl;\n",
		"llama.cpp/ggml-cuda.cu":      "int cuda;\n",
		"llama.cpp/ggml-cuda.h":       "#pragma once\n",
		"llama.cpp/ggml-metal.h":      "#pragma once\n",
		"llama.cpp/ggml-metal.m":      MetalRuntimeSource,
		"llama.cpp/ggml-metal.metal":  MetalShaderSource,
		"binding.cpp":                 "int binding;\n",
		"binding.h":                   "#pragma once\n",
		"include_shims/placeholder.h": "#pragma once\n",
	}
	for k, v := range extra {
		files[k] = v
	}

	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}
