package cli

import (
	"bytes"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specialistvlad/llamabuild/internal/app"
	"github.com/specialistvlad/llamabuild/internal/env"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		args []string
		env  env.Map
		want app.Config
	}{
		{
			name: "defaults",
			args: []string{"./vendor/llama"},
			want: app.Config{
				SourceDir:  "./vendor/llama",
				OutDir:     "build",
				OS:         runtime.GOOS,
				LogFormat:  "text",
				LogLevel:   "info",
				Jobs:       runtime.NumCPU(),
				OptLevel:   "3",
				LinkFormat: "flags",
			},
		},
		{
			name: "repeated and comma separated backends",
			args: []string{"-backend", "cuda,metal", "-backend", " none ", "-source", "src"},
			want: app.Config{
				SourceDir:  "src",
				OutDir:     "build",
				OS:         runtime.GOOS,
				Backends:   []string{"cuda", "metal", "none"},
				LogFormat:  "text",
				LogLevel:   "info",
				Jobs:       runtime.NumCPU(),
				OptLevel:   "3",
				LinkFormat: "flags",
			},
		},
		{
			name: "environment defaults",
			args: nil,
			env: env.Map{
				EnvSourceDir: "/src/llama",
				EnvOutDir:    "/tmp/out",
				EnvBackend:   "openblas",
			},
			want: app.Config{
				SourceDir:  "/src/llama",
				OutDir:     "/tmp/out",
				OS:         runtime.GOOS,
				Backends:   []string{"openblas"},
				LogFormat:  "text",
				LogLevel:   "info",
				Jobs:       runtime.NumCPU(),
				OptLevel:   "3",
				LinkFormat: "flags",
			},
		},
		{
			name: "flags win over environment",
			args: []string{"-out", "dist", "-backend", "blis", "-os", "windows", "-jobs", "4", "-dry-run", "-link-format", "cgo", "-opt", "", "-manifest", "m.hcl", "-log-level", "debug", "-log-format", "json", "src"},
			env:  env.Map{EnvOutDir: "/tmp/out", EnvBackend: "openblas"},
			want: app.Config{
				SourceDir:    "src",
				OutDir:       "dist",
				ManifestPath: "m.hcl",
				OS:           "windows",
				Backends:     []string{"blis"},
				LogFormat:    "json",
				LogLevel:     "debug",
				Jobs:         4,
				OptLevel:     "",
				DryRun:       true,
				LinkFormat:   "cgo",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := tc.env
			if e == nil {
				e = env.Map{}
			}
			var out bytes.Buffer
			cfg, shouldExit, err := Parse(tc.args, &out, e)
			require.NoError(t, err)
			require.False(t, shouldExit)
			assert.Equal(t, tc.want, *cfg)
		})
	}
}

func TestParseExits(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		var out bytes.Buffer
		cfg, shouldExit, err := Parse([]string{"-h"}, &out, env.Map{})
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Nil(t, cfg)
	})

	t.Run("no source prints usage", func(t *testing.T) {
		var out bytes.Buffer
		_, shouldExit, err := Parse(nil, &out, env.Map{})
		require.NoError(t, err)
		assert.True(t, shouldExit)
		assert.Contains(t, out.String(), "Usage:")
		assert.Contains(t, out.String(), "openblas")
	})
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantMsg string
	}{
		{"unknown flag", []string{"-nope"}, "flag provided but not defined: -nope"},
		{"invalid log level", []string{"-log-level", "loud", "src"}, "invalid log level"},
		{"invalid log format", []string{"-log-format", "xml", "src"}, "invalid log format"},
		{"invalid link format", []string{"-link-format", "ldscript", "src"}, "invalid link format"},
		{"negative jobs", []string{"-jobs", "-2", "src"}, "jobs must not be negative"},
		{"extra arguments", []string{"src", "other"}, "unexpected arguments: other"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			_, _, err := Parse(tc.args, &out, env.Map{})
			require.Error(t, err)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantMsg)
		})
	}
}
