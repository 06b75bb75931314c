// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/term"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/config"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/report"
)

// outputParams control how reports are written.
type outputParams struct {
	Color string `flag:"color" desc:"color output: auto, always, or never" default:"auto"`
}

func (p *outputParams) color() (bool, error) {
	switch p.Color {
	case "auto", "":
		return term.IsTerminal(int(os.Stdout.Fd())), nil
	case "always":
		return true, nil
	case "never":
		return false, nil
	default:
		return false, cli.Validation("--color must be auto, always, or never, got %q", p.Color)
	}
}

// archiveParams control writing a run archive.
type archiveParams struct {
	ArchiveDir     string   `flag:"archive-dir" desc:"archive directory (overrides config)"`
	Recipients     []string `flag:"recipient" desc:"age public key to seal archives to (repeatable; overrides config)"`
	PassphraseFile string   `flag:"passphrase-file" desc:"seal archives with the passphrase in this file instead"`
}

// save writes archive per cfg and the flags and returns its path and
// digest.
func (p *archiveParams) save(cfg *config.Config, archive *report.Archive) (string, string, error) {
	compression, err := report.ParseCompression(cfg.Archive.Compression)
	if err != nil {
		return "", "", cli.Validation("%w", err)
	}
	options := report.ArchiveOptions{Compression: compression, Recipients: cfg.Archive.Recipients}
	if len(p.Recipients) > 0 {
		options.Recipients = p.Recipients
	}
	if p.PassphraseFile != "" {
		if len(p.Recipients) > 0 {
			return "", "", cli.Validation("--recipient and --passphrase-file are mutually exclusive")
		}
		passphrase, err := readSecretFlag("--passphrase-file", p.PassphraseFile)
		if err != nil {
			return "", "", err
		}
		defer passphrase.Close()
		options.Recipients = nil
		options.Passphrase = passphrase
	}
	directory := cfg.Archive.Directory
	if p.ArchiveDir != "" {
		directory = p.ArchiveDir
	}
	path, digest, err := report.SaveArchive(directory, archive, options)
	if err != nil {
		return "", "", cli.Internal("%w", err)
	}
	return path, digest, nil
}

type scanParams struct {
	sessionParams
	outputParams
	archiveParams
	cli.JSONOutput
	Archive bool `flag:"archive" desc:"write a run archive of the inventory"`
}

func scanCommand(terminal *cli.Terminal) *cli.Command {
	var params scanParams

	return &cli.Command{
		Name:    "scan",
		Summary: "Inventory every asset of an organization",
		Description: `Log in to the organization, collect every asset category through the
console and public APIs, and print the inventory report. Nothing is
deleted.

Categories that could not be listed are reported as fetch errors and
shown empty; the rest of the scan continues.`,
		Usage: "decommission scan [flags]",
		Examples: []cli.Example{
			{
				Description: "Scan and print the report",
				Command:     "decommission scan --email admin@example.com --org acme",
			},
			{
				Description: "Scan and keep a sealed archive",
				Command:     "decommission scan --archive --recipient age1...",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			color, err := params.color()
			if err != nil {
				return err
			}
			cfg, err := params.resolve()
			if err != nil {
				return err
			}

			conn, err := connect(ctx, cfg, terminal, logger)
			if err != nil {
				return err
			}
			defer conn.close(context.WithoutCancel(ctx))

			inv := collect(ctx, conn, cfg, logger)

			if params.Archive {
				path, digest, err := params.save(cfg, &report.Archive{
					CreatedAt: inv.CollectedAt,
					Inventory: inv,
				})
				if err != nil {
					return err
				}
				logger.Info("archive written", "path", path, "digest", digest)
			}

			if done, err := params.EmitJSON(inv); done {
				return err
			}
			return report.Text(os.Stdout, inv, report.TextOptions{Color: color})
		},
	}
}

// collect scans the organization behind conn.
func collect(ctx context.Context, conn *connection, cfg *config.Config, logger *slog.Logger) *inventory.Inventory {
	collector := inventory.NewCollector(inventory.CollectorConfig{
		Internal:       conn.client,
		External:       conn.external,
		Organization:   conn.session.OrgShortName(),
		OrganizationID: conn.session.OrganizationID(),
		SelfUserID:     conn.session.UserID(),
		ExcludeEmails:  append([]string{cfg.Account.Email}, cfg.Scan.ExcludeEmails...),
		Logger:         logger,
	})
	inv := collector.Collect(ctx)
	for _, fetchError := range inv.Errors {
		fmt.Fprintf(os.Stderr, "warning: %s\n", fetchError.Error())
	}
	return inv
}

func itoa(n int) string { return strconv.Itoa(n) }
