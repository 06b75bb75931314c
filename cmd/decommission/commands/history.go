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
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/history"
)

type historyParams struct {
	configParams
	cli.JSONOutput
	Path  string `flag:"history" desc:"history database path (overrides config)"`
	Limit int    `flag:"limit,n" desc:"number of runs to list, 0 for all" default:"20"`
}

type historyShowParams struct {
	configParams
	cli.JSONOutput
	Path     string `flag:"history" desc:"history database path (overrides config)"`
	Failures bool   `flag:"failures" desc:"only failed and secondary results"`
}

func historyCommand() *cli.Command {
	var params historyParams

	return &cli.Command{
		Name:    "history",
		Summary: "List recorded decommission runs",
		Description: `List the runs recorded in the local history database, newest first.
Use "history show" for the per-asset results of one run.`,
		Usage:       "decommission history [show <run-id>] [flags]",
		Params:      func() any { return &params },
		Subcommands: []*cli.Command{historyShowCommand()},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			store, err := params.open(params.Path, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Runs(ctx, params.Limit)
			if err != nil {
				return cli.Internal("%w", err)
			}
			if done, err := params.EmitJSON(runs); done {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(os.Stderr, "No runs recorded.")
				return nil
			}
			writeRuns(os.Stdout, runs)
			return nil
		},
	}
}

func historyShowCommand() *cli.Command {
	var params historyShowParams

	return &cli.Command{
		Name:    "show",
		Summary: "Show the results of one run",
		Usage:   "decommission history show <run-id> [flags]",
		Params:  func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return cli.Validation("expected exactly one run id")
			}
			store, err := params.open(params.Path, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.Run(ctx, args[0])
			if errors.Is(err, history.ErrRunNotFound) {
				return cli.NotFound("%w", err)
			} else if err != nil {
				return cli.Internal("%w", err)
			}
			var results []history.Result
			if params.Failures {
				results, err = store.Failures(ctx, run.RunID)
			} else {
				results, err = store.Results(ctx, run.RunID)
			}
			if err != nil {
				return cli.Internal("%w", err)
			}

			if done, err := params.EmitJSON(struct {
				Run     history.Run      `json:"run"`
				Results []history.Result `json:"results"`
			}{run, results}); done {
				return err
			}
			writeRuns(os.Stdout, []history.Run{run})
			fmt.Println()
			writeResults(os.Stdout, results)
			return nil
		},
	}
}

// open opens the history database named by override or the config.
func (p *configParams) open(override string, logger *slog.Logger) (*history.Store, error) {
	cfg, err := p.load()
	if err != nil {
		return nil, err
	}
	if override != "" {
		cfg.History.Path = override
	}
	if _, err := os.Stat(cfg.History.Path); errors.Is(err, os.ErrNotExist) {
		return nil, cli.NotFound("no history database at %s", cfg.History.Path)
	}
	store, err := openHistory(cfg, logger)
	if err != nil {
		return nil, cli.Internal("%w", err)
	}
	return store, nil
}

func writeRuns(w io.Writer, runs []history.Run) {
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tORGANIZATION\tSTARTED\tDURATION\tDELETED\tFAILED\tARCHIVE")
	for _, run := range runs {
		archive := run.ArchivePath
		if archive == "" {
			archive = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			run.RunID,
			run.Organization,
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.FinishedAt.Sub(run.StartedAt).Round(time.Second),
			run.SuccessCount,
			run.FailCount,
			archive,
		)
	}
	tw.Flush()
}

func writeResults(w io.Writer, results []history.Result) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "RESULT\tCATEGORY\tID\tNAME\tERROR")
	for _, result := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			result.Kind,
			result.Asset.Category.Slug(),
			result.Asset.Key(),
			result.Asset.Label(),
			result.Error,
		)
	}
	tw.Flush()
}
