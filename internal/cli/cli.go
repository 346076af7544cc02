package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/specialistvlad/llamabuild/internal/app"
	"github.com/specialistvlad/llamabuild/internal/env"
	"github.com/specialistvlad/llamabuild/internal/target"
)

// Environment variables that supply flag defaults.
const (
	EnvBackend   = "LLAMABUILD_BACKEND"
	EnvOutDir    = "LLAMABUILD_OUT_DIR"
	EnvSourceDir = "LLAMABUILD_SOURCE_DIR"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// listFlag collects a flag that may be repeated and may hold comma
// separated values.
type listFlag []string

func (l *listFlag) String() string { return strings.Join(*l, ",") }

func (l *listFlag) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// e supplies the LLAMABUILD_* defaults.
func Parse(args []string, output io.Writer, e env.Provider) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("llamabuild", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprintf(output, `
llamabuild - builds the llama.cpp native library for the Go binding.

Usage:
  llamabuild [options] [SOURCE_DIR]

Arguments:
  SOURCE_DIR
    Directory holding the llama.cpp checkout and binding.cpp.
    Defaults to $%s.

Backends:
  %s

Options:
`, EnvSourceDir, strings.Join(target.BackendNames(), ", "))
		flagSet.PrintDefaults()
	}

	var backends listFlag
	sourceFlag := flagSet.String("source", "", "Source directory (overrides SOURCE_DIR).")
	outFlag := flagSet.String("out", env.Or(e, EnvOutDir, "build"), "Output directory for objects, libraries and link.txt.")
	manifestFlag := flagSet.String("manifest", "", "Path to the layout manifest. Defaults to SOURCE_DIR/llamabuild.hcl when present.")
	flagSet.Var(&backends, "backend", "Acceleration backend. Repeatable or comma separated; at most one may be selected.")
	osFlag := flagSet.String("os", "", "Target operating system: linux, darwin or windows. Defaults to the host.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	jobsFlag := flagSet.Int("jobs", 0, "Concurrent compiler processes per unit. 0 uses every CPU.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Print the resolved build plan without compiling.")
	linkFormatFlag := flagSet.String("link-format", "flags", "Format of link.txt. Options: 'flags' or 'cgo'.")
	optFlag := flagSet.String("opt", "3", "Optimisation level passed to the compilers. Empty for the compiler default.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	source := *sourceFlag
	if source == "" && flagSet.NArg() > 0 {
		source = flagSet.Arg(0)
	}
	if source == "" {
		source = env.Get(e, EnvSourceDir)
	}
	if source == "" {
		slog.Debug("No source directory provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}
	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected arguments: %s", strings.Join(flagSet.Args()[1:], " "))}
	}

	if len(backends) == 0 {
		if v := env.Get(e, EnvBackend); v != "" {
			_ = backends.Set(v)
		}
	}
	slog.Debug("Source directory determined.", "source", source, "backends", backends)

	config, err := app.NewConfig(app.Config{
		SourceDir:    source,
		OutDir:       *outFlag,
		ManifestPath: *manifestFlag,
		OS:           *osFlag,
		Backends:     backends,
		LogFormat:    *logFormatFlag,
		LogLevel:     *logLevelFlag,
		Jobs:         *jobsFlag,
		OptLevel:     *optFlag,
		DryRun:       *dryRunFlag,
		LinkFormat:   *linkFormatFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
