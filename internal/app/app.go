package app

import (
	"context"
	"io"
	"log/slog"

	"github.com/specialistvlad/llamabuild/internal/ctxlog"
	"github.com/specialistvlad/llamabuild/internal/env"
	"github.com/specialistvlad/llamabuild/internal/toolchain"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	config *Config
	env    env.Provider
	runner toolchain.Runner
}

// Option customises an App.
type Option func(*App)

// WithEnv replaces the process environment.
func WithEnv(p env.Provider) Option {
	return func(a *App) { a.env = p }
}

// WithRunner replaces the process runner used for every tool invocation.
func WithRunner(r toolchain.Runner) Option {
	return func(a *App) { a.runner = r }
}

// WithOutput sets where the dry-run plan and the build summary are written.
// Logs always go to the writer given to NewApp.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.outW = w }
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger writing to logW.
func NewApp(logW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW)
	a := &App{
		outW:   logW,
		logger: logger,
		config: cfg,
		env:    env.OS{},
	}
	for _, o := range opts {
		o(a)
	}
	logger.Debug("Logger configured successfully.")
	return a
}

// Context returns ctx carrying the app's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}
