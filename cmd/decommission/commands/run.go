// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/config"
	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/history"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/report"
	"github.com/bureau-foundation/decommission/lib/tui"
)

type runParams struct {
	sessionParams
	selectionParams
	outputParams
	archiveParams
	Yes       bool   `flag:"yes,y" desc:"skip the typed confirmation"`
	DryRun    bool   `flag:"dry-run" desc:"print the deletion plan and stop"`
	NoArchive bool   `flag:"no-archive" desc:"do not write a run archive"`
	NoHistory bool   `flag:"no-history" desc:"do not record the run in the history database"`
	History   string `flag:"history" desc:"history database path (overrides config)"`
	Plain     bool   `flag:"plain" desc:"log progress lines instead of the live view"`
}

func runCommand(terminal *cli.Terminal) *cli.Command {
	var params runParams

	return &cli.Command{
		Name:    "run",
		Summary: "Delete the selected assets of an organization",
		Description: `Scan the organization, select assets, confirm, and delete them.

Deletion follows a fixed order (users first, alarm sites last) so that
dependents are removed before what they depend on. A failed deletion is
recorded and the run continues. Every run is recorded in the history
database and, unless --no-archive, written to a run archive holding the
inventory and the ledger of what was deleted.

Confirmation requires typing the organization short name. The exit code
is 1 when any deletion failed.`,
		Usage: "decommission run [flags]",
		Examples: []cli.Example{
			{
				Description: "Preview what a full run would delete",
				Command:     "decommission run --dry-run",
			},
			{
				Description: "Delete only cameras and sensors on the third floor",
				Command:     "decommission run --category cameras --category sensors --match 'floor 3'",
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
			if params.History != "" {
				cfg.History.Path = params.History
			}

			conn, err := connect(ctx, cfg, terminal, logger)
			if err != nil {
				return err
			}
			defer conn.close(context.WithoutCancel(ctx))

			inv := collect(ctx, conn, cfg, logger)
			selection, err := params.selectAssets(inv)
			if err != nil {
				return err
			}
			planned := decommission.Plan(inv, selection)
			if len(planned) == 0 {
				fmt.Fprintln(os.Stderr, "Nothing selected for deletion.")
				return nil
			}

			writePlan(os.Stdout, inv.Organization, planned, params.DryRun)
			if params.DryRun {
				return nil
			}

			if !params.Yes {
				confirmed, err := terminal.Confirm(
					fmt.Sprintf("\nAbout to permanently delete %d assets from %s.", len(planned), inv.Organization),
					inv.Organization)
				if err != nil {
					return cli.Validation("confirmation: %w (use --yes to skip)", err)
				}
				if !confirmed {
					fmt.Fprintln(os.Stderr, "Aborted. Nothing was deleted.")
					return &cli.ExitError{Code: 1}
				}
			}

			live := !params.Plain && terminal.Interactive() && term.IsTerminal(int(os.Stderr.Fd()))
			ledger := execute(ctx, conn, inv, selection, len(planned), live, logger)

			if err := report.Ledger(os.Stdout, ledger, report.TextOptions{Color: color}); err != nil {
				return cli.Internal("writing summary: %w", err)
			}

			var archiveRef history.ArchiveRef
			if !params.NoArchive {
				path, digest, err := params.save(cfg, &report.Archive{
					CreatedAt: ledger.FinishedAt,
					Inventory: inv,
					Ledger:    ledger,
				})
				if err != nil {
					logger.Error("archive not written", "error", err)
				} else {
					archiveRef = history.ArchiveRef{Path: path, Digest: digest}
					fmt.Fprintf(os.Stderr, "Archive: %s\n", path)
				}
			}
			if !params.NoHistory {
				if err := recordRun(ctx, cfg, ledger, archiveRef, logger); err != nil {
					logger.Error("run not recorded in history", "error", err)
				}
			}

			if ledger.FailCount > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// execute runs the pipeline, with the live view when live is set.
func execute(ctx context.Context, conn *connection, inv *inventory.Inventory, selection decommission.Selection, total int, live bool, logger *slog.Logger) *decommission.Ledger {
	pipelineConfig := decommission.Config{
		Internal:       conn.client,
		External:       conn.external,
		OrganizationID: conn.session.OrganizationID(),
		Logger:         logger,
	}

	if !live {
		pipelineConfig.Progress = decommission.ProgressFunc(func(update decommission.Progress) {
			status := "deleted"
			if update.Err != nil {
				status = "FAILED: " + update.Err.Error()
			}
			fmt.Fprintf(os.Stderr, "[%d/%d] %s %s %s\n",
				update.Done, update.Total, update.Asset.Category.String(), update.Asset.Label(), status)
		})
		return decommission.New(pipelineConfig).Run(ctx, inv, selection)
	}

	model := tui.NewProgressModel(tui.ProgressConfig{
		Title: inv.Organization,
		Total: total,
	})
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	logHandler := tui.NewLogHandler(slog.LevelWarn)
	logHandler.SetProgram(program)
	sink := tui.NewProgramSink(program)

	pipelineConfig.Progress = sink
	pipelineConfig.Logger = slog.New(logHandler)

	result := make(chan *decommission.Ledger, 1)
	go func() {
		ledger := decommission.New(pipelineConfig).Run(ctx, inv, selection)
		sink.Finish()
		result <- ledger
	}()

	if _, err := program.Run(); err != nil {
		logger.Warn("progress view stopped", "error", err)
	}
	if model.Hidden() {
		fmt.Fprintf(os.Stderr, "Progress view closed; waiting for %d deletions to finish.\n", total)
	}
	return <-result
}

// writePlan prints the per-category counts, and every asset when
// detailed.
func writePlan(w io.Writer, organization string, planned []inventory.Asset, detailed bool) {
	fmt.Fprintf(w, "Deletion plan for %s (%d assets):\n", organization, len(planned))
	tw := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	for _, row := range planCounts(planned) {
		fmt.Fprintf(tw, "  %s\t%s\n", row[0], row[1])
	}
	tw.Flush()
	if !detailed {
		return
	}
	fmt.Fprintln(w)
	tw = tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  CATEGORY\tID\tNAME")
	for _, asset := range planned {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", asset.Category.Slug(), asset.Key(), asset.Label())
	}
	tw.Flush()
}

// openHistory opens the configured history database, creating its
// directory.
func openHistory(cfg *config.Config, logger *slog.Logger) (*history.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	return history.Open(history.Config{Path: cfg.History.Path, Logger: logger})
}

func recordRun(ctx context.Context, cfg *config.Config, ledger *decommission.Ledger, archive history.ArchiveRef, logger *slog.Logger) error {
	store, err := openHistory(cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return store.Record(context.WithoutCancel(ctx), ledger, archive)
}
