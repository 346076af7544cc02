package app

import (
	"runtime"
	"strings"

	"github.com/specialistvlad/llamabuild/internal/builderr"
	"github.com/specialistvlad/llamabuild/internal/link"
)

// Config holds all the necessary configuration for one build.
type Config struct {
	SourceDir    string // llama.cpp checkout plus binding sources
	OutDir       string
	ManifestPath string // optional; defaults to SourceDir/llamabuild.hcl

	OS       string
	Backends []string

	LogFormat string
	LogLevel  string

	Jobs       int
	OptLevel   string
	DryRun     bool
	LinkFormat string

	// Tool overrides. Empty means the CC/CXX/AR/NVCC environment variables,
	// then the platform default.
	CC   string
	CXX  string
	AR   string
	NVCC string
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.SourceDir == "" {
		return nil, builderr.Configuration("SourceDir is a required configuration field and cannot be empty")
	}
	if cfg.OutDir == "" {
		return nil, builderr.Configuration("OutDir is a required configuration field and cannot be empty")
	}

	if cfg.OS == "" {
		cfg.OS = runtime.GOOS
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.LogLevel = strings.ToLower(cfg.LogLevel)
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}

	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	cfg.LogFormat = strings.ToLower(cfg.LogFormat)
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, builderr.Configuration("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}

	if cfg.Jobs < 0 {
		return nil, builderr.Configuration("jobs must not be negative, got %d", cfg.Jobs)
	}
	if cfg.Jobs == 0 {
		cfg.Jobs = runtime.NumCPU()
	}

	if cfg.LinkFormat == "" {
		cfg.LinkFormat = string(link.FormatFlags)
	}
	if _, err := link.ParseFormat(cfg.LinkFormat); err != nil {
		return nil, builderr.Configuration("%v", err)
	}

	return &cfg, nil
}
