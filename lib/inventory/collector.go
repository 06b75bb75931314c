// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/verkada"
)

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	// Registry defaults to NewRegistry().
	Registry *Registry

	// Internal and External are the two surfaces. A nil surface makes
	// its categories fail and come back empty.
	Internal verkada.Doer
	External verkada.Doer

	// Organization is the short name recorded in the inventory.
	Organization   string
	OrganizationID string

	// SelfUserID is the logged-in admin, never listed as a user.
	SelfUserID string

	// ExcludeEmails are users never listed, compared
	// case-insensitively after trimming.
	ExcludeEmails []string

	Clock  clock.Clock
	Logger *slog.Logger
}

// Collector lists every category of an organization.
type Collector struct {
	registry      *Registry
	clients       Clients
	organization  string
	scope         Scope
	selfUserID    string
	excludeEmails map[string]struct{}
	clock         clock.Clock
	logger        *slog.Logger
}

// NewCollector applies defaults.
func NewCollector(config CollectorConfig) *Collector {
	registry := config.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	exclude := make(map[string]struct{}, len(config.ExcludeEmails))
	for _, email := range config.ExcludeEmails {
		if email = normalizeEmail(email); email != "" {
			exclude[email] = struct{}{}
		}
	}
	return &Collector{
		registry:      registry,
		clients:       Clients{Internal: config.Internal, External: config.External},
		organization:  config.Organization,
		scope:         Scope{OrganizationID: config.OrganizationID},
		selfUserID:    strings.TrimSpace(config.SelfUserID),
		excludeEmails: exclude,
		clock:         clk,
		logger:        logger,
	}
}

// Collect runs the scan. It never fails as a whole: a category that
// cannot be listed is logged, recorded in Errors, and left empty.
//
// Intercoms are listed first because intercom units also report as a
// camera and an access controller; those duplicates are dropped by
// serial number.
func (c *Collector) Collect(ctx context.Context) *Inventory {
	inv := New(c.organization, c.scope.OrganizationID, c.clock.Now())

	intercoms := c.list(ctx, inv, Intercoms)
	inv.Set(Intercoms, intercoms)
	inv.Set(AccessControllers, Sanitize(intercoms, c.list(ctx, inv, AccessControllers)))
	inv.Set(Cameras, Sanitize(intercoms, c.list(ctx, inv, Cameras)))

	for _, category := range []Category{Sensors, DeskStations, MailroomSites, GuestSites} {
		inv.Set(category, c.list(ctx, inv, category))
	}

	inv.Set(Users, c.excludeUsers(c.list(ctx, inv, Users)))

	for _, category := range []Category{AlarmSites, AlarmDevices, UnassignedDevices} {
		inv.Set(category, c.list(ctx, inv, category))
	}

	c.logger.Info("inventory collected",
		"organization", c.organization,
		"total", inv.Total(),
		"failed_categories", len(inv.Errors),
	)
	return inv
}

func (c *Collector) list(ctx context.Context, inv *Inventory, category Category) []Asset {
	assets, err := c.registry.List(ctx, c.clients, c.scope, category)
	if err != nil {
		c.logger.Warn("listing category failed",
			"category", category.String(),
			"error", err,
		)
		inv.Errors = append(inv.Errors, FetchError{Category: category, Message: err.Error()})
		return []Asset{}
	}
	c.logger.Info("listed category", "category", category.String(), "count", len(assets))
	return assets
}

// excludeUsers drops the admin running the scan and any excluded
// email so the run cannot lock its own operator out.
func (c *Collector) excludeUsers(users []Asset) []Asset {
	kept := make([]Asset, 0, len(users))
	for _, user := range users {
		if c.selfUserID != "" && strings.TrimSpace(user.ID) == c.selfUserID {
			continue
		}
		if _, excluded := c.excludeEmails[normalizeEmail(user.Email)]; excluded && user.Email != "" {
			continue
		}
		kept = append(kept, user)
	}
	return kept
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
