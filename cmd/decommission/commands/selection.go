// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"slices"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/inventory"
)

// selectionParams narrow a run to part of the inventory.
type selectionParams struct {
	Categories []string `flag:"category" desc:"categories to delete, by slug (repeatable; default all deletable)"`
	Match      string   `flag:"match,m" desc:"fuzzy filter on asset name, serial, id, and category"`
}

// selectAssets resolves the flags against inv. With neither flag set
// every deletable asset is selected.
func (p *selectionParams) selectAssets(inv *inventory.Inventory) (decommission.Selection, error) {
	categories := decommission.DeletionOrder
	if len(p.Categories) > 0 {
		categories = nil
		for _, name := range p.Categories {
			category, err := inventory.ParseCategory(name)
			if err != nil {
				return nil, cli.Validation("--category: %w", err)
			}
			if !slices.Contains(decommission.DeletionOrder, category) {
				return nil, cli.Validation("--category: %s cannot be deleted", category.Slug())
			}
			if !slices.Contains(categories, category) {
				categories = append(categories, category)
			}
		}
	}

	var candidates []inventory.Asset
	for _, category := range categories {
		candidates = append(candidates, inv.Get(category)...)
	}

	selection := make(decommission.Selection)
	for _, result := range inventory.Match(candidates, p.Match) {
		selection.Add(result.Asset.Category, result.Asset.Key())
	}
	return selection, nil
}

// planCounts tallies planned assets per category in deletion order,
// omitting empty categories.
func planCounts(planned []inventory.Asset) [][2]string {
	counts := make(map[inventory.Category]int)
	for _, asset := range planned {
		counts[asset.Category]++
	}
	var rows [][2]string
	for _, category := range decommission.DeletionOrder {
		if n := counts[category]; n > 0 {
			rows = append(rows, [2]string{category.String(), itoa(n)})
		}
	}
	return rows
}
