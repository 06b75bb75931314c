// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import (
	"fmt"
	"strings"
)

// Category is a kind of asset. The set is closed: categoryCount sizes
// the registry table.
type Category uint8

const (
	Users Category = iota
	Sensors
	Intercoms
	DeskStations
	MailroomSites
	GuestSites
	AccessControllers
	Cameras
	AlarmDevices
	AlarmSites
	AlarmSystems
	UnassignedDevices

	categoryCount
)

var categoryNames = [categoryCount]struct{ display, slug string }{
	Users:             {"Users", "users"},
	Sensors:           {"Sensors", "sensors"},
	Intercoms:         {"Intercoms", "intercoms"},
	DeskStations:      {"Desk Stations", "desk-stations"},
	MailroomSites:     {"Mailroom Sites", "mailroom-sites"},
	GuestSites:        {"Guest Sites", "guest-sites"},
	AccessControllers: {"Access Controllers", "access-controllers"},
	Cameras:           {"Cameras", "cameras"},
	AlarmDevices:      {"Alarm Devices", "alarm-devices"},
	AlarmSites:        {"Alarm Sites", "alarm-sites"},
	AlarmSystems:      {"Alarm Systems", "alarm-systems"},
	UnassignedDevices: {"Unassigned Devices", "unassigned-devices"},
}

// String returns the human-readable name, e.g. "Desk Stations".
func (c Category) String() string {
	if c >= categoryCount {
		return fmt.Sprintf("Category(%d)", uint8(c))
	}
	return categoryNames[c].display
}

// Slug returns the command-line name, e.g. "desk-stations".
func (c Category) Slug() string {
	if c >= categoryCount {
		return fmt.Sprintf("category-%d", uint8(c))
	}
	return categoryNames[c].slug
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool { return c < categoryCount }

// MarshalText encodes the slug.
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("inventory: invalid category %d", uint8(c))
	}
	return []byte(c.Slug()), nil
}

// UnmarshalText accepts anything ParseCategory accepts.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Categories returns every category in declaration order.
func Categories() []Category {
	all := make([]Category, 0, categoryCount)
	for c := range categoryCount {
		all = append(all, c)
	}
	return all
}

// ParseCategory accepts a slug or display name, case-insensitively.
// Underscores and spaces are treated as hyphens.
func ParseCategory(name string) (Category, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)
	for c := range categoryCount {
		if categoryNames[c].slug == normalized {
			return c, nil
		}
	}
	return 0, fmt.Errorf("inventory: unknown category %q", name)
}
