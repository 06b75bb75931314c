// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/version"
)

// Root builds the command tree. Commands that prompt read from and
// write to terminal.
func Root(terminal *cli.Terminal) *cli.Command {
	return &cli.Command{
		Name: "decommission",
		Description: `decommission: inventory and bulk-delete a Verkada organization.

Log in as an organization admin, enumerate every resource category
through the console and public APIs, and delete the selected assets
in dependency order. Every run can be archived and is recorded in a
local history database.`,
		Subcommands: []*cli.Command{
			scanCommand(terminal),
			runCommand(terminal),
			reportCommand(),
			historyCommand(),
			importGuestsCommand(terminal),
			keygenCommand(),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, args []string, _ *slog.Logger) error {
					fmt.Println(version.Full())
					return nil
				},
			},
		},
	}
}
