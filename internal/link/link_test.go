package link

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/llamabuild/internal/target"
)

func TestFlagsPOSIX(t *testing.T) {
	ds := []Directive{
		Lib("cublas", "/usr/local/cuda/lib64", "/opt/cuda/lib64"),
		Lib("cudart", "/usr/local/cuda/lib64", "/opt/cuda/lib64"),
		FrameworkOf("Metal"),
		{Name: "ggml-cuda", Kind: Static, SearchPaths: []string{"/out"}},
	}

	want := []string{
		"-L/usr/local/cuda/lib64", "-L/opt/cuda/lib64", "-L/out",
		"-lcublas", "-lcudart", "-framework", "Metal", "-lggml-cuda",
	}
	if diff := cmp.Diff(want, Flags(target.Linux, ds)); diff != "" {
		t.Errorf("Flags() mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagsWindows(t *testing.T) {
	ds := []Directive{Lib("OpenCL", `C:\sdk\lib`), Lib("clblast"), FrameworkOf("Metal")}
	assert.Equal(t, []string{`/LIBPATH:C:\sdk\lib`, "OpenCL.lib", "clblast.lib"}, Flags(target.Windows, ds))
}

func TestEmit(t *testing.T) {
	ds := []Directive{Lib("blis", "/usr/local/lib"), FrameworkOf("Accelerate")}

	t.Run("flags", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Emit(&buf, FormatFlags, target.Darwin, ds))
		assert.Equal(t, "-L/usr/local/lib\n-lblis\n-framework\nAccelerate\n", buf.String())
	})

	t.Run("cgo", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Emit(&buf, FormatCgo, target.Darwin, ds))
		assert.Equal(t, "// #cgo darwin LDFLAGS: -L/usr/local/lib -lblis -framework Accelerate\n", buf.String())
	})

	t.Run("cgo quotes paths with spaces", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Emit(&buf, FormatCgo, target.Linux, []Directive{Lib("x", "/opt/my libs")}))
		assert.Equal(t, "// #cgo linux LDFLAGS: \"-L/opt/my libs\" -lx\n", buf.String())
	})

	t.Run("empty set", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Emit(&buf, FormatFlags, target.Linux, nil))
		assert.Empty(t, buf.String())
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("cgo")
	require.NoError(t, err)
	assert.Equal(t, FormatCgo, f)

	_, err = ParseFormat("json")
	assert.ErrorContains(t, err, "invalid link format")
}

func TestDirectiveString(t *testing.T) {
	assert.Equal(t, "framework=Metal", FrameworkOf("Metal").String())
	assert.Equal(t, "dylib=openblas", Lib("openblas").String())
}
