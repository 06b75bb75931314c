// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"time"
)

// ReportOrder is the order categories are presented in reports.
var ReportOrder = []Category{
	Sensors,
	Intercoms,
	DeskStations,
	MailroomSites,
	AccessControllers,
	Cameras,
	GuestSites,
	Users,
	AlarmSites,
	AlarmDevices,
	UnassignedDevices,
}

// FetchError records a category that could not be listed.
type FetchError struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
}

func (e FetchError) Error() string {
	return e.Category.String() + ": " + e.Message
}

// Inventory is the result of one scan.
type Inventory struct {
	Organization   string               `json:"organization"`
	OrganizationID string               `json:"organization_id"`
	CollectedAt    time.Time            `json:"collected_at"`
	Assets         map[Category][]Asset `json:"assets"`
	Errors         []FetchError         `json:"errors,omitempty"`
}

// New returns an empty inventory for organization.
func New(organization, organizationID string, collectedAt time.Time) *Inventory {
	return &Inventory{
		Organization:   organization,
		OrganizationID: organizationID,
		CollectedAt:    collectedAt,
		Assets:         make(map[Category][]Asset),
	}
}

// Get returns category's assets in scan order.
func (inv *Inventory) Get(category Category) []Asset {
	return inv.Assets[category]
}

// Set replaces category's assets, dropping any repeated id.
func (inv *Inventory) Set(category Category, assets []Asset) {
	seen := make(map[string]struct{}, len(assets))
	unique := make([]Asset, 0, len(assets))
	for _, asset := range assets {
		if _, duplicate := seen[asset.ID]; duplicate {
			continue
		}
		seen[asset.ID] = struct{}{}
		unique = append(unique, asset)
	}
	if inv.Assets == nil {
		inv.Assets = make(map[Category][]Asset)
	}
	inv.Assets[category] = unique
}

// Count returns the number of assets in category.
func (inv *Inventory) Count(category Category) int {
	return len(inv.Assets[category])
}

// Total returns the number of assets across ReportOrder.
func (inv *Inventory) Total() int {
	total := 0
	for _, category := range ReportOrder {
		total += len(inv.Assets[category])
	}
	return total
}

// Find returns the asset in category with the given selection key.
func (inv *Inventory) Find(category Category, key string) (Asset, bool) {
	for _, asset := range inv.Assets[category] {
		if asset.Key() == key {
			return asset, true
		}
	}
	return Asset{}, false
}
