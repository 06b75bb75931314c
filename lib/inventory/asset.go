// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Asset is one listed item, normalized across categories.
type Asset struct {
	ID       string   `json:"id"`
	Category Category `json:"category"`
	Name     string   `json:"name,omitempty"`
	Serial   string   `json:"serial,omitempty"`
	Email    string   `json:"email,omitempty"`

	// SiteID, AlarmSiteID, and AlarmSystemID are set for alarm sites
	// (all three) and the site categories (SiteID).
	SiteID        string `json:"site_id,omitempty"`
	AlarmSiteID   string `json:"alarm_site_id,omitempty"`
	AlarmSystemID string `json:"alarm_system_id,omitempty"`

	BusinessName string `json:"business_name,omitempty"`

	// Raw is the item exactly as the API returned it.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// Key identifies the asset for selection. Alarm sites need two ids to
// be deleted and are keyed "alarmSiteID, siteID"; everything else is
// keyed by ID.
func (a Asset) Key() string {
	if a.Category == AlarmSites {
		return a.AlarmSiteID + ", " + a.SiteID
	}
	return a.ID
}

// DisplayName picks the most descriptive label: email, then name, then
// business name.
func (a Asset) DisplayName() string {
	for _, candidate := range []string{a.Email, a.Name, a.BusinessName} {
		if candidate = strings.TrimSpace(candidate); candidate != "" {
			return candidate
		}
	}
	return "(No Name)"
}

// Label is DisplayName with the serial number and alarm system id
// appended when known.
func (a Asset) Label() string {
	var extras []string
	if a.Serial != "" {
		extras = append(extras, "S/N: "+a.Serial)
	}
	if a.AlarmSystemID != "" {
		extras = append(extras, "Sys ID: "+a.AlarmSystemID)
	}
	if len(extras) == 0 {
		return a.DisplayName()
	}
	return fmt.Sprintf("%s (%s)", a.DisplayName(), strings.Join(extras, ", "))
}
