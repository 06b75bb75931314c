// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package decommission

import (
	"time"

	"github.com/bureau-foundation/decommission/lib/inventory"
)

// Failure is an asset that could not be deleted.
type Failure struct {
	Asset inventory.Asset `json:"asset"`
	Error string          `json:"error"`
}

// Ledger accumulates the outcome of one run. Entries are only ever
// appended.
type Ledger struct {
	RunID        string    `json:"run_id"`
	Organization string    `json:"organization"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`

	SuccessCount int `json:"success_count"`
	FailCount    int `json:"fail_count"`

	Deleted []inventory.Asset `json:"deleted"`
	Failed  []Failure         `json:"failed"`

	// Secondary records failures of preparatory deletions, such as
	// the alarm system behind an alarm site, that did not decide the
	// outcome of any asset.
	Secondary []Failure `json:"secondary,omitempty"`
}

// Total is the number of assets attempted.
func (l *Ledger) Total() int { return l.SuccessCount + l.FailCount }

// Duration is how long the run took.
func (l *Ledger) Duration() time.Duration { return l.FinishedAt.Sub(l.StartedAt) }

func (l *Ledger) succeed(asset inventory.Asset) {
	l.SuccessCount++
	l.Deleted = append(l.Deleted, asset)
}

func (l *Ledger) fail(asset inventory.Asset, err error) {
	l.FailCount++
	l.Failed = append(l.Failed, Failure{Asset: asset, Error: err.Error()})
}

// FailuresByCategory groups Failed by category.
func (l *Ledger) FailuresByCategory() map[inventory.Category][]Failure {
	grouped := make(map[inventory.Category][]Failure)
	for _, failure := range l.Failed {
		grouped[failure.Asset.Category] = append(grouped[failure.Asset.Category], failure)
	}
	return grouped
}
