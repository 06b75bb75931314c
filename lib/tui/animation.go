// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "time"

// HeatDecayDuration is how long a fresh outcome stays highlighted.
// Heat falls linearly from 1 to 0 over this span.
const HeatDecayDuration = 3 * time.Second

// HeatTickInterval is the redraw interval while anything is hot.
const HeatTickInterval = 100 * time.Millisecond

// HeatKind selects the highlight color.
type HeatKind int

const (
	HeatDeleted HeatKind = iota
	HeatFailed
)

type heatEntry struct {
	ignition time.Time
	kind     HeatKind
}

// HeatTracker remembers when each asset's outcome arrived. It is
// owned by the model and not safe for concurrent use.
type HeatTracker struct {
	entries map[string]heatEntry
}

// NewHeatTracker returns an empty tracker.
func NewHeatTracker() *HeatTracker {
	return &HeatTracker{entries: make(map[string]heatEntry)}
}

// Ignite marks key as changed at now, restarting its decay.
func (tracker *HeatTracker) Ignite(key string, kind HeatKind, now time.Time) {
	tracker.entries[key] = heatEntry{ignition: now, kind: kind}
}

// Heat is 1 at ignition and 0 once HeatDecayDuration has passed or
// for keys never ignited.
func (tracker *HeatTracker) Heat(key string, now time.Time) float64 {
	entry, ok := tracker.entries[key]
	if !ok {
		return 0
	}
	elapsed := now.Sub(entry.ignition)
	if elapsed >= HeatDecayDuration {
		return 0
	}
	return 1 - float64(elapsed)/float64(HeatDecayDuration)
}

// Kind is the kind key was last ignited with.
func (tracker *HeatTracker) Kind(key string) HeatKind {
	return tracker.entries[key].kind
}

// HasHot reports whether any key still has heat, dropping the ones
// that have cooled.
func (tracker *HeatTracker) HasHot(now time.Time) bool {
	hot := false
	for key, entry := range tracker.entries {
		if now.Sub(entry.ignition) < HeatDecayDuration {
			hot = true
			continue
		}
		delete(tracker.entries, key)
	}
	return hot
}
