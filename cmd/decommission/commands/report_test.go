// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/bureau-foundation/decommission/cmd/decommission/cli"
	"github.com/bureau-foundation/decommission/lib/history"
	"github.com/bureau-foundation/decommission/lib/inventory"
	"github.com/bureau-foundation/decommission/lib/report"
)

func requireCategory(t *testing.T, err error, want cli.ErrorCategory) {
	t.Helper()
	var toolError *cli.ToolError
	if !errors.As(err, &toolError) {
		t.Fatalf("err = %v, want a %s tool error", err, want)
	}
	if toolError.Category != want {
		t.Fatalf("category = %s, want %s (err: %v)", toolError.Category, want, err)
	}
}

func TestFindAsset(t *testing.T) {
	inv := testInventory()

	asset, err := findAsset(inv, "cameras/c-2")
	if err != nil {
		t.Fatalf("findAsset: %v", err)
	}
	if asset.Name != "Dock Cam" {
		t.Errorf("found %q, want Dock Cam", asset.Name)
	}

	_, err = findAsset(inv, "cameras/c-9")
	requireCategory(t, err, cli.CategoryNotFound)

	for _, reference := range []string{"cameras", "cameras/", "gizmos/c-1"} {
		_, err := findAsset(inv, reference)
		requireCategory(t, err, cli.CategoryValidation)
	}
}

func TestRenderArchiveFormats(t *testing.T) {
	archive := &report.Archive{
		Version:   1,
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Inventory: testInventory(),
	}
	for _, format := range []string{"text", "markdown", "html", "json"} {
		var output strings.Builder
		if err := renderArchive(&output, archive, format, false); err != nil {
			t.Errorf("format %s: %v", format, err)
			continue
		}
		if !strings.Contains(output.String(), "Lobby Cam") {
			t.Errorf("format %s does not mention Lobby Cam:\n%s", format, output.String())
		}
	}

	err := renderArchive(&strings.Builder{}, archive, "pdf", false)
	requireCategory(t, err, cli.CategoryValidation)
}

func TestReportIdentityFlagsExclusive(t *testing.T) {
	params := reportParams{IdentityFile: "key.txt", PassphraseFile: "pass.txt"}
	_, err := params.identity()
	requireCategory(t, err, cli.CategoryValidation)

	var none reportParams
	identity, err := none.identity()
	if err != nil || identity != nil {
		t.Errorf("identity() = %v, %v; want nil, nil without flags", identity, err)
	}
}

func TestReadSecretFlagMissingFile(t *testing.T) {
	_, err := readSecretFlag("--identity", filepath.Join(t.TempDir(), "absent"))
	requireCategory(t, err, cli.CategoryValidation)
	if !strings.Contains(err.Error(), "--identity") {
		t.Errorf("err = %v, want it to name the flag", err)
	}
}

func TestWriteKeyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive.key")
	if err := writeKeyFile(path, []byte("AGE-SECRET-KEY-1TEST"), false); err != nil {
		t.Fatalf("writeKeyFile: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if mode := info.Mode().Perm(); mode != 0o600 {
		t.Errorf("mode = %o, want 600", mode)
	}

	err = writeKeyFile(path, []byte("AGE-SECRET-KEY-1OTHER"), false)
	requireCategory(t, err, cli.CategoryConflict)

	if err := writeKeyFile(path, []byte("AGE-SECRET-KEY-1OTHER"), true); err != nil {
		t.Fatalf("writeKeyFile with force: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "AGE-SECRET-KEY-1OTHER\n" {
		t.Errorf("key file = %q", data)
	}
}

func TestWriteRunsAndResults(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var output strings.Builder
	writeRuns(&output, []history.Run{{
		RunID:        "run-1",
		Organization: "acme",
		StartedAt:    started,
		FinishedAt:   started.Add(90 * time.Second),
		SuccessCount: 3,
		FailCount:    1,
	}})
	for _, want := range []string{"RUN ID", "run-1", "acme", "1m30s", "-"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("runs table is missing %q:\n%s", want, output.String())
		}
	}

	output.Reset()
	writeResults(&output, []history.Result{{
		Kind:  history.KindFailed,
		Asset: inventory.Asset{ID: "c-1", Category: inventory.Cameras, Name: "Lobby Cam"},
		Error: "status 500",
	}})
	for _, want := range []string{"failed", "cameras", "c-1", "Lobby Cam", "status 500"} {
		if !strings.Contains(output.String(), want) {
			t.Errorf("results table is missing %q:\n%s", want, output.String())
		}
	}

	output.Reset()
	writeResults(&output, nil)
	if !strings.Contains(output.String(), "No results.") {
		t.Errorf("empty results = %q", output.String())
	}
}
