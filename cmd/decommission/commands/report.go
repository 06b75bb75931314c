// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/report"
	"github.com/bureau-foundation/decommission/lib/secret"
)

type reportParams struct {
	outputParams
	Format         string `flag:"format,f" desc:"text, markdown, html, or json" default:"text"`
	Output         string `flag:"output,o" desc:"write to this file instead of stdout"`
	IdentityFile   string `flag:"identity,i" desc:"age identity file for sealed archives"`
	PassphraseFile string `flag:"passphrase-file" desc:"passphrase file for passphrase-sealed archives"`
	Asset          string `flag:"asset" desc:"show the raw API record of one asset, as category/id"`
}

func reportCommand() *cli.Command {
	var params reportParams

	return &cli.Command{
		Name:    "report",
		Summary: "Render a run archive",
		Description: `Open a run archive written by scan or run, verify its digest, and
render the inventory and, for runs, the deletion ledger.

Sealed archives need the matching age identity (--identity) or the
passphrase they were sealed with (--passphrase-file).`,
		Usage: "decommission report <archive> [flags]",
		Examples: []cli.Example{
			{
				Description: "Render a sealed archive as HTML",
				Command:     "decommission report acme_report_2026-03-01_120000.vkda -i key.txt -f html -o report.html",
			},
			{
				Description: "Show the raw record of one camera",
				Command:     "decommission report acme_report_2026-03-01_120000.vkda --asset cameras/cam-1",
			},
		},
		Params: func() any { return &params },
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one archive path")
			}
			color, err := params.color()
			if err != nil {
				return err
			}

			identity, err := params.identity()
			if err != nil {
				return err
			}
			if identity != nil {
				defer identity.Close()
			}

			archive, digest, err := report.OpenArchive(args[0], identity)
			switch {
			case errors.Is(err, report.ErrSealedArchive):
				return cli.Validation("%s is sealed: pass --identity or --passphrase-file", args[0])
			case errors.Is(err, report.ErrNotArchive):
				return cli.Validation("%s: %w", args[0], err)
			case errors.Is(err, os.ErrNotExist):
				return cli.NotFound("%w", err)
			case err != nil:
				return cli.Internal("%w", err)
			}
			logger.Info("archive verified", "path", args[0], "digest", digest)

			var w io.Writer = os.Stdout
			if params.Output != "" {
				file, err := os.Create(params.Output)
				if err != nil {
					return cli.Internal("%w", err)
				}
				defer file.Close()
				w = file
				color = false
			}

			if params.Asset != "" {
				asset, err := findAsset(archive.Inventory, params.Asset)
				if err != nil {
					return err
				}
				return report.Raw(w, asset, color)
			}
			return renderArchive(w, archive, params.Format, color)
		},
	}
}

func (p *reportParams) identity() (*secret.Buffer, error) {
	switch {
	case p.IdentityFile != "" && p.PassphraseFile != "":
		return nil, cli.Validation("--identity and --passphrase-file are mutually exclusive")
	case p.IdentityFile != "":
		return readSecretFlag("--identity", p.IdentityFile)
	case p.PassphraseFile != "":
		return readSecretFlag("--passphrase-file", p.PassphraseFile)
	}
	return nil, nil
}

func renderArchive(w io.Writer, archive *report.Archive, format string, color bool) error {
	var err error
	switch format {
	case "text", "":
		err = report.Text(w, archive.Inventory, report.TextOptions{Color: color})
		if err == nil && archive.Ledger != nil {
			fmt.Fprintln(w)
			err = report.Ledger(w, archive.Ledger, report.TextOptions{Color: color})
		}
	case "markdown", "md":
		err = report.Markdown(w, archive.Inventory, archive.Ledger)
	case "html":
		err = report.HTML(w, archive.Inventory, archive.Ledger)
	case "json":
		err = cli.WriteJSON(w, archive)
	default:
		return cli.Validation("--format must be text, markdown, html, or json, got %q", format)
	}
	if err != nil {
		return cli.Internal("rendering report: %w", err)
	}
	return nil
}

// findAsset resolves "category/key" in inv.
func findAsset(inv *inventory.Inventory, reference string) (inventory.Asset, error) {
	name, key, ok := strings.Cut(reference, "/")
	if !ok || key == "" {
		return inventory.Asset{}, cli.Validation("--asset must be category/id, got %q", reference)
	}
	category, err := inventory.ParseCategory(name)
	if err != nil {
		return inventory.Asset{}, cli.Validation("--asset: %w", err)
	}
	asset, found := inv.Find(category, key)
	if !found {
		return inventory.Asset{}, cli.NotFound("no %s with id %q in the archive", category.Slug(), key)
	}
	return asset, nil
}

func readSecretFlag(flag, path string) (*secret.Buffer, error) {
	buffer, err := secret.ReadFromPath(path)
	if err != nil {
		return nil, cli.Validation("%s: %w", flag, err)
	}
	return buffer, nil
}
