// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package guestimport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bureau-foundation/decommission/lib/verkada"
)

// DateLayout is the accepted visit date format, MM/DD/YYYY.
const DateLayout = "01/02/2006"

// Skip reasons.
const (
	ReasonNoEmail   = "no email"
	ReasonDuplicate = "duplicate email"
)

// VisitSource lists guest visits. *verkada.ExternalClient satisfies it.
type VisitSource interface {
	GuestVisits(ctx context.Context, siteID string, start, end time.Time) ([]verkada.GuestVisit, error)
}

// Inviter sends organization invitations. *verkada.InternalClient
// satisfies it.
type Inviter interface {
	InviteUser(ctx context.Context, invite verkada.Invite) error
}

// Day returns the span [midnight, next midnight) of date in loc.
func Day(date string, loc *time.Location) (start, end time.Time, err error) {
	if loc == nil {
		loc = time.Local
	}
	start, err = time.ParseInLocation(DateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("guestimport: date %q is not MM/DD/YYYY", date)
	}
	return start, start.AddDate(0, 0, 1), nil
}

// Skipped is a visit that produced no invitation.
type Skipped struct {
	Visit  verkada.GuestVisit `json:"visit"`
	Reason string             `json:"reason"`
}

// Failed is an invitation the console rejected.
type Failed struct {
	Visit verkada.GuestVisit `json:"visit"`
	Error string             `json:"error"`
}

// Result is the outcome of one import.
type Result struct {
	SiteID  string               `json:"site_id"`
	Start   time.Time            `json:"start"`
	End     time.Time            `json:"end"`
	Visits  int                  `json:"visits"`
	Invited []verkada.GuestVisit `json:"invited"`
	Skipped []Skipped            `json:"skipped"`
	Failed  []Failed             `json:"failed"`
}

// Config configures an Importer.
type Config struct {
	Source  VisitSource
	Inviter Inviter

	// OrgAdmin makes every invited user an organization admin.
	OrgAdmin bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Importer invites guest visitors.
type Importer struct {
	source   VisitSource
	inviter  Inviter
	orgAdmin bool
	logger   *slog.Logger
}

// New builds an Importer. Source and Inviter are required.
func New(config Config) (*Importer, error) {
	if config.Source == nil {
		return nil, fmt.Errorf("guestimport: Source is required")
	}
	if config.Inviter == nil {
		return nil, fmt.Errorf("guestimport: Inviter is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		source:   config.Source,
		inviter:  config.Inviter,
		orgAdmin: config.OrgAdmin,
		logger:   logger,
	}, nil
}

// Import invites the visitors of siteID between start and end. The
// error is non-nil only when the visits could not be listed or ctx
// ended; invitation failures are in Result.Failed.
func (im *Importer) Import(ctx context.Context, siteID string, start, end time.Time) (*Result, error) {
	visits, err := im.source.GuestVisits(ctx, siteID, start, end)
	if err != nil {
		return nil, fmt.Errorf("guestimport: %w", err)
	}
	result := &Result{SiteID: siteID, Start: start, End: end, Visits: len(visits)}
	logger := im.logger.With("site_id", siteID)
	logger.Info("importing guests", "visits", len(visits), "start", start, "end", end)

	seen := make(map[string]bool, len(visits))
	for _, visit := range visits {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		email := strings.ToLower(strings.TrimSpace(visit.Email))
		switch {
		case email == "":
			result.Skipped = append(result.Skipped, Skipped{Visit: visit, Reason: ReasonNoEmail})
			continue
		case seen[email]:
			result.Skipped = append(result.Skipped, Skipped{Visit: visit, Reason: ReasonDuplicate})
			continue
		}
		seen[email] = true

		err := im.inviter.InviteUser(ctx, verkada.Invite{
			Email:     visit.Email,
			FirstName: visit.FirstName,
			LastName:  visit.LastName,
			OrgAdmin:  im.orgAdmin,
		})
		if err != nil {
			logger.Warn("invitation failed", "visit_id", visit.VisitID, "error", err)
			result.Failed = append(result.Failed, Failed{Visit: visit, Error: err.Error()})
			continue
		}
		logger.Info("guest invited", "visit_id", visit.VisitID)
		result.Invited = append(result.Invited, visit)
	}
	return result, nil
}
