// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// clearEnvironment blanks every override so tests see only the file.
func clearEnvironment(t *testing.T) {
	t.Helper()
	for name := range Default().environmentOverrides() {
		t.Setenv(name, "")
	}
	t.Setenv("DECOMMISSION_CONFIG", "")
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Account.Shard != "prod1" {
		t.Errorf("shard = %q, want prod1", cfg.Account.Shard)
	}
	if cfg.External.Region != "api" || cfg.External.MaxAttempts != 4 {
		t.Errorf("external = %+v", cfg.External)
	}
	backoff, err := cfg.InitialBackoff()
	if err != nil || backoff != 500*time.Millisecond {
		t.Errorf("InitialBackoff() = %v, %v", backoff, err)
	}
	if cfg.MFA.InvalidCode != "retain" {
		t.Errorf("mfa.invalid_code = %q, want retain", cfg.MFA.InvalidCode)
	}
}

func TestLoadFileYAML(t *testing.T) {
	clearEnvironment(t)
	path := writeFile(t, "decommission.yaml", `
root: /srv/decommission
account:
  email: admin@example.com
  org_short_name: lab-west
archive:
  compression: lz4
  recipients: [age1example]
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Account.OrgShortName != "lab-west" {
		t.Errorf("org_short_name = %q", cfg.Account.OrgShortName)
	}
	if cfg.Account.Shard != "prod1" {
		t.Errorf("shard default lost: %q", cfg.Account.Shard)
	}
	if cfg.Archive.Directory != "/srv/decommission/archives" {
		t.Errorf("archive.directory = %q", cfg.Archive.Directory)
	}
	if cfg.History.Path != "/srv/decommission/history.db" {
		t.Errorf("history.path = %q", cfg.History.Path)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFileJSONC(t *testing.T) {
	clearEnvironment(t)
	path := writeFile(t, "decommission.jsonc", `{
  // lab tenant
  "account": {"email": "admin@example.com", "org_short_name": "lab-east",},
  "mfa": {"invalid_code": "discard"},
}`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Account.OrgShortName != "lab-east" || cfg.MFA.InvalidCode != "discard" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestEnvironmentOverridesIdentity(t *testing.T) {
	clearEnvironment(t)
	path := writeFile(t, "decommission.yaml", "account:\n  email: file@example.com\n  org_short_name: lab\n")
	t.Setenv("VERKADA_EMAIL", "env@example.com")
	t.Setenv("VERKADA_SHARD", "prod2")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Account.Email != "env@example.com" {
		t.Errorf("email = %q, want env override", cfg.Account.Email)
	}
	if cfg.Account.Shard != "prod2" {
		t.Errorf("shard = %q, want prod2", cfg.Account.Shard)
	}
	if cfg.Account.OrgShortName != "lab" {
		t.Errorf("org_short_name = %q, want file value", cfg.Account.OrgShortName)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	clearEnvironment(t)
	t.Setenv("VERKADA_ORG_SHORT_NAME", "lab")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Account.OrgShortName != "lab" {
		t.Errorf("org_short_name = %q", cfg.Account.OrgShortName)
	}
	if strings.Contains(cfg.History.Path, "${") {
		t.Errorf("history.path not expanded: %q", cfg.History.Path)
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("DECOMMISSION_TEST_VAR", "from-env")
	vars := map[string]string{"ROOT": "/r"}

	tests := map[string]string{
		"${ROOT}/a":                  "/r/a",
		"${DECOMMISSION_TEST_VAR}":   "from-env",
		"${MISSING_VAR:-fallback}/x": "fallback/x",
		"plain":                      "plain",
	}
	for input, want := range tests {
		if got := expandVars(input, vars); got != want {
			t.Errorf("expandVars(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.External.MaxAttempts = 0
	cfg.External.InitialBackoff = "soon"
	cfg.MFA.InvalidCode = "forget"
	cfg.Archive.Compression = "gzip"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted an invalid config")
	}
	for _, fragment := range []string{
		"account.email", "account.org_short_name", "external.max_attempts",
		"external.initial_backoff", "mfa.invalid_code", "archive.compression",
	} {
		if !strings.Contains(err.Error(), fragment) {
			t.Errorf("error missing %q:\n%v", fragment, err)
		}
	}
}
