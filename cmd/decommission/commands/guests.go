// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/config"
	"github.com/bureau-foundation/decommission/lib/guestimport"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/secret"
	"github.com/bureau-foundation/decommission/lib/verkada"
)

type importGuestsParams struct {
	sessionParams
	cli.JSONOutput
	SourceKeyFile string `flag:"source-api-key-file" desc:"public API key of the organization whose guest log is read (required)"`
	SourceRegion  string `flag:"source-region" desc:"API region of the source organization (default: --region of the target)"`
	Site          string `flag:"site" desc:"guest site ID; lists the source sites to choose from when unset"`
	Date          string `flag:"date" desc:"day of visits to import, MM/DD/YYYY (required)"`
	Timezone      string `flag:"timezone" desc:"IANA zone the day is interpreted in" default:"Local"`
	OrgAdmin      bool   `flag:"org-admin" desc:"invite visitors as organization admins" default:"true"`
}

func importGuestsCommand(terminal *cli.Terminal) *cli.Command {
	var params importGuestsParams

	return &cli.Command{
		Name:    "import-guests",
		Summary: "Invite one day of guest visitors as users",
		Description: `Read the visitor log of a guest site in a source organization for one
day and invite every visitor with an e-mail address to the target
organization. Visitors are invited once per address, compared without
regard to case. A failed invitation is reported and does not stop the
rest.

The source organization is read through its public API key; the
target organization is the console login of --config, --email, and
--org.`,
		Usage: "decommission import-guests --source-api-key-file <path> --date MM/DD/YYYY [flags]",
		Examples: []cli.Example{
			{
				Description: "Import the visitors of 3 March 2026 from a chosen site",
				Command:     "decommission import-guests --source-api-key-file source.key --date 03/03/2026",
			},
			{
				Description: "Import without prompting for the site, as regular users",
				Command:     "decommission import-guests --source-api-key-file source.key --site 6f1c --date 03/03/2026 --org-admin=false",
			},
		},
		Params: func() any { return &params },
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return cli.Validation("unexpected argument %q", args[0])
			}
			if params.SourceKeyFile == "" {
				return cli.Validation("--source-api-key-file is required")
			}
			if params.Date == "" {
				return cli.Validation("--date is required")
			}
			location, err := time.LoadLocation(params.Timezone)
			if err != nil {
				return cli.Validation("--timezone: %w", err)
			}
			start, end, err := guestimport.Day(params.Date, location)
			if err != nil {
				return cli.Validation("--date: %w", err)
			}

			cfg, err := params.resolve()
			if err != nil {
				return err
			}

			source, sourceKey, err := openSource(ctx, cfg, params.SourceKeyFile, params.SourceRegion, logger)
			if err != nil {
				return err
			}
			defer sourceKey.Close()

			siteID := params.Site
			if siteID == "" {
				siteID, err = chooseGuestSite(ctx, terminal, source)
				if err != nil {
					return err
				}
			}

			session, err := login(ctx, cfg, terminal, logger)
			if err != nil {
				return err
			}
			defer session.close(context.WithoutCancel(ctx))

			importer, err := guestimport.New(guestimport.Config{
				Source:   source,
				Inviter:  session.client,
				OrgAdmin: params.OrgAdmin,
				Logger:   logger,
			})
			if err != nil {
				return cli.Internal("%w", err)
			}
			result, err := importer.Import(ctx, siteID, start, end)
			if err != nil {
				return cli.Transient("%w", err)
			}

			if done, err := params.EmitJSON(result); done {
				if err == nil && len(result.Failed) > 0 {
					return &cli.ExitError{Code: 1}
				}
				return err
			}
			writeImport(os.Stdout, result)
			if len(result.Failed) > 0 {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}

// openSource connects to the source organization's public API. The
// client refreshes its token with the returned key, which the caller
// closes when done.
func openSource(ctx context.Context, cfg *config.Config, keyFile, region string, logger *slog.Logger) (*verkada.ExternalClient, *secret.Buffer, error) {
	key, err := readSecretFlag("--source-api-key-file", keyFile)
	if err != nil {
		return nil, nil, err
	}
	sourceConfig := *cfg
	if region != "" {
		sourceConfig.External.Region = region
	}
	client, err := openExternal(ctx, &sourceConfig, key, logger.With("organization", "source"))
	if err != nil {
		key.Close()
		return nil, nil, err
	}
	return client, key, nil
}

func chooseGuestSite(ctx context.Context, terminal *cli.Terminal, source *verkada.ExternalClient) (string, error) {
	sites, err := inventory.NewRegistry().List(ctx, inventory.Clients{External: source}, inventory.Scope{}, inventory.GuestSites)
	if err != nil {
		return "", cli.Transient("listing guest sites: %w", err)
	}
	if len(sites) == 0 {
		return "", cli.NotFound("the source organization has no guest sites")
	}
	labels := make([]string, len(sites))
	for i, site := range sites {
		labels[i] = fmt.Sprintf("%s (%s)", site.DisplayName(), site.SiteID)
	}
	choice, err := terminal.Choose("Guest site: ", labels)
	if err != nil {
		return "", cli.Validation("choosing a guest site: %w (pass --site)", err)
	}
	return sites[choice].SiteID, nil
}

func writeImport(w io.Writer, result *guestimport.Result) {
	fmt.Fprintf(w, "Site %s, %s to %s: %d visits, %d invited, %d skipped, %d failed\n",
		result.SiteID,
		result.Start.Format(time.DateTime),
		result.End.Format(time.DateTime),
		result.Visits,
		len(result.Invited),
		len(result.Skipped),
		len(result.Failed),
	)
	if len(result.Skipped) == 0 && len(result.Failed) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 2, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "VISITOR\tEMAIL\tOUTCOME")
	for _, skipped := range result.Skipped {
		fmt.Fprintf(tw, "%s\t%s\tskipped: %s\n", skipped.Visit.FullName, skipped.Visit.Email, skipped.Reason)
	}
	for _, failed := range result.Failed {
		fmt.Fprintf(tw, "%s\t%s\tfailed: %s\n", failed.Visit.FullName, failed.Visit.Email, failed.Error)
	}
	tw.Flush()
}
