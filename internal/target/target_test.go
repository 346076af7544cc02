package target

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/llamabuild/internal/builderr"
)

func TestSelectBackend(t *testing.T) {
	testCases := []struct {
		name      string
		requested []string
		want      Backend
		wantErr   string
	}{
		{name: "nothing selects none", requested: nil, want: None},
		{name: "blank entries ignored", requested: []string{"", "  "}, want: None},
		{name: "single backend", requested: []string{"metal"}, want: Metal},
		{name: "case insensitive", requested: []string{"OpenBLAS"}, want: OpenBLAS},
		{name: "alias", requested: []string{"cublas"}, want: CUDA},
		{name: "duplicate is one backend", requested: []string{"cuda", "cublas"}, want: CUDA},
		{name: "none beside a backend", requested: []string{"none", "blis"}, want: BLIS},
		{name: "two backends", requested: []string{"cuda", "metal"}, wantErr: "backends are mutually exclusive, got cuda and metal"},
		{name: "unknown", requested: []string{"vulkan"}, wantErr: `unknown backend "vulkan"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SelectBackend(tc.requested)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, builderr.ErrConfiguration)
				assert.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	t.Run("valid posix target", func(t *testing.T) {
		bt, err := New("linux", []string{"opencl"})
		require.NoError(t, err)
		assert.Equal(t, BuildTarget{OS: Linux, Backend: OpenCLCLBlast}, bt)
		assert.Equal(t, "linux/opencl", bt.String())
	})

	t.Run("unsupported os", func(t *testing.T) {
		_, err := New("plan9", nil)
		assert.ErrorIs(t, err, builderr.ErrConfiguration)
		assert.ErrorContains(t, err, "unsupported operating system")
	})

	t.Run("metal outside darwin", func(t *testing.T) {
		_, err := New("linux", []string{"metal"})
		assert.ErrorIs(t, err, builderr.ErrConfiguration)
	})

	t.Run("metal on darwin", func(t *testing.T) {
		bt, err := New("darwin", []string{"metal"})
		require.NoError(t, err)
		assert.Equal(t, Metal, bt.Backend)
	})
}

func TestBackendNames(t *testing.T) {
	assert.Equal(t, []string{"none", "openblas", "blis", "opencl", "metal", "cuda"}, BackendNames())
	assert.Equal(t, "unknown", Backend(42).String())
}
