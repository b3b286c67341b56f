// Command ksubst substitutes ${NAME}, ${NAME.} and ${NAME-} placeholders in
// a stream, a single file, or a whole directory tree, with values taken from
// the environment, .env files, workspace status files, or KEY=VALUE lists.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(
		context.Background(), os.Interrupt,
	)
	defer stop()

	cmd := newRootCmd(os.Stdin, os.Stdout, os.Stderr, os.Environ())

	return cmd.ExecuteContext(ctx)
}
