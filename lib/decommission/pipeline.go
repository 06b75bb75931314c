// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package decommission

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bureau-foundation/decommission/lib/clock"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/verkada"
)

// ErrIncompleteIdentifier is returned for an alarm site missing its
// site id or alarm site id.
var ErrIncompleteIdentifier = inventory.ErrIncompleteIdentifier

// DeletionOrder is the fixed category sequence of every run. Users are
// deleted through the public API; everything else through the console.
var DeletionOrder = []inventory.Category{
	inventory.Users,
	inventory.Sensors,
	inventory.Intercoms,
	inventory.DeskStations,
	inventory.MailroomSites,
	inventory.GuestSites,
	inventory.AccessControllers,
	inventory.Cameras,
	inventory.AlarmDevices,
	inventory.AlarmSites,
}

// Progress is sent after each attempted asset.
type Progress struct {
	Done  int
	Total int
	Asset inventory.Asset

	// Err is nil when the asset was deleted.
	Err error
}

// ProgressSink receives progress updates on the pipeline's goroutine.
type ProgressSink interface {
	Progress(Progress)
}

// ProgressFunc adapts a function to ProgressSink.
type ProgressFunc func(Progress)

// Progress implements ProgressSink.
func (f ProgressFunc) Progress(update Progress) { f(update) }

// Selection is a set of assets identified by category and key (see
// inventory.Asset.Key). Keys are only unique within a category: a
// mailroom site and a guest site share the org site id. A nil
// Selection selects everything.
type Selection map[inventory.Category]map[string]struct{}

// Select builds a Selection holding assets.
func Select(assets ...inventory.Asset) Selection {
	selection := make(Selection)
	for _, asset := range assets {
		selection.Add(asset.Category, asset.Key())
	}
	return selection
}

// Add selects key within category.
func (s Selection) Add(category inventory.Category, key string) {
	keys := s[category]
	if keys == nil {
		keys = make(map[string]struct{})
		s[category] = keys
	}
	keys[key] = struct{}{}
}

// Contains reports whether asset is selected.
func (s Selection) Contains(asset inventory.Asset) bool {
	if s == nil {
		return true
	}
	_, ok := s[asset.Category][asset.Key()]
	return ok
}

// Len is the number of selected assets.
func (s Selection) Len() int {
	n := 0
	for _, keys := range s {
		n += len(keys)
	}
	return n
}

// Config configures a Pipeline.
type Config struct {
	// Registry defaults to inventory.NewRegistry().
	Registry *inventory.Registry

	Internal verkada.Doer
	External verkada.Doer

	OrganizationID string

	// Progress may be nil.
	Progress ProgressSink

	Clock  clock.Clock
	Logger *slog.Logger
}

// Pipeline deletes assets one at a time in DeletionOrder.
type Pipeline struct {
	registry *inventory.Registry
	clients  inventory.Clients
	scope    inventory.Scope
	progress ProgressSink
	clock    clock.Clock
	logger   *slog.Logger
}

// New applies defaults.
func New(config Config) *Pipeline {
	registry := config.Registry
	if registry == nil {
		registry = inventory.NewRegistry()
	}
	progress := config.Progress
	if progress == nil {
		progress = ProgressFunc(func(Progress) {})
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		registry: registry,
		clients:  inventory.Clients{Internal: config.Internal, External: config.External},
		scope:    inventory.Scope{OrganizationID: config.OrganizationID},
		progress: progress,
		clock:    clk,
		logger:   logger,
	}
}

// Plan returns the selected assets in the order Run will attempt them.
func Plan(inv *inventory.Inventory, selection Selection) []inventory.Asset {
	var planned []inventory.Asset
	for _, category := range DeletionOrder {
		for _, asset := range inv.Get(category) {
			if selection.Contains(asset) {
				planned = append(planned, asset)
			}
		}
	}
	return planned
}

// Run deletes every selected asset of inv and returns the ledger. It
// never stops early: a cancelled ctx makes the remaining network calls
// fail, and each is recorded as a failure.
func (p *Pipeline) Run(ctx context.Context, inv *inventory.Inventory, selection Selection) *Ledger {
	planned := Plan(inv, selection)
	ledger := &Ledger{
		RunID:        uuid.NewString(),
		Organization: inv.Organization,
		StartedAt:    p.clock.Now(),
	}
	logger := p.logger.With("run_id", ledger.RunID)
	logger.Info("deletion run starting", "organization", inv.Organization, "total", len(planned))

	for index, asset := range planned {
		err := p.delete(ctx, logger, ledger, asset)
		if err != nil {
			ledger.fail(asset, err)
			logger.Warn("deletion failed",
				"category", asset.Category.String(),
				"asset_id", asset.Key(),
				"error", err,
			)
		} else {
			ledger.succeed(asset)
			logger.Info("deleted",
				"category", asset.Category.String(),
				"asset_id", asset.Key(),
			)
		}
		p.progress.Progress(Progress{Done: index + 1, Total: len(planned), Asset: asset, Err: err})
	}

	ledger.FinishedAt = p.clock.Now()
	logger.Info("deletion run finished",
		"deleted", ledger.SuccessCount,
		"failed", ledger.FailCount,
		"secondary_failures", len(ledger.Secondary),
	)
	return ledger
}

func (p *Pipeline) delete(ctx context.Context, logger *slog.Logger, ledger *Ledger, asset inventory.Asset) error {
	if asset.Category == inventory.AlarmSites && asset.AlarmSystemID != "" {
		system := inventory.Asset{
			ID:       asset.AlarmSystemID,
			Category: inventory.AlarmSystems,
			Name:     asset.DisplayName(),
		}
		if err := p.registry.Delete(ctx, p.clients, p.scope, system); err != nil {
			logger.Warn("alarm system deletion failed, removing site anyway",
				"alarm_system_id", asset.AlarmSystemID,
				"asset_id", asset.Key(),
				"error", err,
			)
			ledger.Secondary = append(ledger.Secondary, Failure{Asset: system, Error: err.Error()})
		}
	}
	return p.registry.Delete(ctx, p.clients, p.scope, asset)
}
