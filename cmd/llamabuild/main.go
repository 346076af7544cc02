package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/specialistvlad/llamabuild/internal/app"
	"github.com/specialistvlad/llamabuild/internal/cli"
	"github.com/specialistvlad/llamabuild/internal/env"
)

// main is the entrypoint for the llamabuild application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()

	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run encapsulates the main application logic for easier testing and error
// handling. Results go to outW, logs and usage to logW.
func run(ctx context.Context, outW, logW io.Writer, args []string, opts ...app.Option) error {
	appConfig, shouldExit, err := cli.Parse(args, logW, env.OS{})
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	opts = append([]app.Option{app.WithOutput(outW)}, opts...)
	_, err = app.NewApp(logW, appConfig, opts...).Run(ctx)
	return err
}
