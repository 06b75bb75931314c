// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/inventory"
)

func testModel(t *testing.T) (*ProgressModel, *time.Time) {
	t.Helper()
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	model := NewProgressModel(ProgressConfig{
		Title: "acme",
		Total: 3,
		Now:   func() time.Time { return now },
	})
	return model, &now
}

func camera(id string) inventory.Asset {
	return inventory.Asset{ID: id, Category: inventory.Cameras, Name: "Camera " + id, Serial: "S-" + id}
}

func TestProgressCounts(t *testing.T) {
	model, _ := testModel(t)

	model.Update(ProgressMsg{Done: 1, Total: 3, Asset: camera("a")})
	model.Update(ProgressMsg{Done: 2, Total: 3, Asset: camera("b"), Err: errors.New("status 500")})

	if model.Deleted() != 1 || model.Failed() != 1 {
		t.Fatalf("deleted=%d failed=%d, want 1 and 1", model.Deleted(), model.Failed())
	}
	if got, want := model.Fraction(), 2.0/3.0; got != want {
		t.Errorf("Fraction = %v, want %v", got, want)
	}

	view := model.View()
	for _, want := range []string{"Decommissioning acme", "2/3", "1 deleted", "1 failed", "Camera b", "status 500"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestProgressRecentIsBounded(t *testing.T) {
	model, _ := testModel(t)
	for i := range recentLimit + 5 {
		model.Update(ProgressMsg{Done: i + 1, Total: recentLimit + 5, Asset: camera(string(rune('a' + i)))})
	}
	if len(model.recent) != recentLimit {
		t.Fatalf("recent has %d entries, want %d", len(model.recent), recentLimit)
	}
	if !strings.Contains(model.recent[0].label, "Camera f") {
		t.Errorf("oldest kept entry = %q, want Camera f", model.recent[0].label)
	}
}

func TestProgressHideOnlyClosesView(t *testing.T) {
	model, _ := testModel(t)
	if !strings.Contains(model.View(), "deletions continue") {
		t.Errorf("help does not say deletions continue:\n%s", model.View())
	}

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if cmd == nil {
		t.Fatal("q returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q command is not tea.Quit")
	}
	if !model.Hidden() {
		t.Error("model not hidden after q")
	}

	// Updates sent after hiding still count.
	model.Update(ProgressMsg{Done: 1, Total: 3, Asset: camera("a")})
	if model.Deleted() != 1 {
		t.Errorf("deleted = %d after hide, want 1", model.Deleted())
	}
}

func TestProgressKeysIgnoredWhenFinished(t *testing.T) {
	model, _ := testModel(t)
	model.Update(DoneMsg{})
	if _, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC}); cmd != nil {
		t.Error("ctrl+c after DoneMsg returned a command")
	}
	if model.Hidden() {
		t.Error("finished model marked hidden")
	}
}

func TestProgressDoneQuits(t *testing.T) {
	model, _ := testModel(t)
	_, cmd := model.Update(DoneMsg{})
	if cmd == nil {
		t.Fatal("DoneMsg returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("DoneMsg command is not tea.Quit")
	}
	if !strings.Contains(model.View(), "Done.") {
		t.Errorf("finished view:\n%s", model.View())
	}
}

func TestProgressHeatTickStops(t *testing.T) {
	model, now := testModel(t)

	_, cmd := model.Update(ProgressMsg{Done: 1, Total: 3, Asset: camera("a")})
	if cmd == nil {
		t.Fatal("first outcome did not schedule a heat tick")
	}
	_, cmd = model.Update(ProgressMsg{Done: 2, Total: 3, Asset: camera("b")})
	if cmd != nil {
		t.Error("second outcome scheduled another tick while one is pending")
	}

	_, cmd = model.Update(heatTickMsg{})
	if cmd == nil {
		t.Error("tick while hot did not reschedule")
	}

	*now = now.Add(HeatDecayDuration)
	_, cmd = model.Update(heatTickMsg{})
	if cmd != nil {
		t.Error("tick after decay rescheduled")
	}
	if model.ticking {
		t.Error("model still ticking after decay")
	}
}

func TestProgressLogStatus(t *testing.T) {
	model, _ := testModel(t)
	model.Update(LogMsg{Summary: "deletion failed (category=Cameras)", Level: -4})
	if !strings.Contains(model.View(), "deletion failed (category=Cameras)") {
		t.Errorf("view missing log line:\n%s", model.View())
	}
}

func TestProgramSinkImplementsProgressSink(t *testing.T) {
	var _ decommission.ProgressSink = (*ProgramSink)(nil)
}
