// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inventory

import "testing"

func TestMatch(t *testing.T) {
	assets := []Asset{
		{ID: "cam-1", Category: Cameras, Name: "Parking Lot North"},
		{ID: "cam-2", Category: Cameras, Name: "Lobby"},
		{ID: "se-1", Category: Sensors, Name: "Server Room Air"},
	}

	results := Match(assets, "parking")
	if len(results) != 1 || results[0].Asset.ID != "cam-1" {
		t.Fatalf("Match(parking) = %+v", results)
	}
	if results[0].Score <= 0 {
		t.Errorf("score = %d, want positive", results[0].Score)
	}

	if got := Match(assets, "PRKNG"); len(got) != 1 || got[0].Asset.ID != "cam-1" {
		t.Errorf("case-insensitive subsequence match failed: %+v", got)
	}
	if got := Match(assets, "zzz"); len(got) != 0 {
		t.Errorf("Match(zzz) = %+v, want none", got)
	}
	if got := Match(assets, "  "); len(got) != len(assets) {
		t.Errorf("empty pattern matched %d of %d", len(got), len(assets))
	}
}
