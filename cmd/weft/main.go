// Package main provides the weft command-line interface.
package main

import (
	"context"
	"log/slog"
	"os"

	cli "github.com/urfave/cli/v3"
)

func main() {
	cmd := &cli.Command{
		Name:                  "weft",
		Usage:                 "Create, manage and run workflows",
		EnableShellCompletion: true,
		Commands: []*cli.Command{
			APICommand(),
			RunCommand(),
			ValidateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}
