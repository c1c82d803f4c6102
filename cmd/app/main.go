// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
)

var version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "tokenvault",
		Usage:   "Encryption-at-rest core with live key rotation for provider credentials",
		Version: version,
		Commands: append(
			getKeyCommands(),
			getSystemCommands()...,
		),
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
