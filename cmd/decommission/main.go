// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Command decommission inventories a Verkada organization and deletes
// its devices, users, and sites in bulk.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/cmd/decommission/commands"
)

func main() {
	if err := run(); err != nil {
		// Commands that print their own summary (a run with failed
		// deletions) return an ExitError. No "error:" line for those.
		var exit *cli.ExitError
		if errors.As(err, &exit) {
			os.Exit(exit.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		var coder interface{ ExitCode() int }
		if errors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := cli.NewCommandLogger(cli.ParseLevel(os.Getenv("DECOMMISSION_LOG_LEVEL")))
	return commands.Root(cli.NewTerminal()).Execute(ctx, os.Args[1:], logger)
}
