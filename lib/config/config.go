// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Config is the complete tool configuration.
type Config struct {
	// Root is the base directory for archives and history.
	Root string `yaml:"root" json:"root"`

	Account  AccountConfig  `yaml:"account" json:"account"`
	External ExternalConfig `yaml:"external" json:"external"`
	Internal InternalConfig `yaml:"internal" json:"internal"`
	MFA      MFAConfig      `yaml:"mfa" json:"mfa"`
	Scan     ScanConfig     `yaml:"scan" json:"scan"`
	Archive  ArchiveConfig  `yaml:"archive" json:"archive"`
	History  HistoryConfig  `yaml:"history" json:"history"`
}

// AccountConfig identifies the organization admin that runs the tool.
type AccountConfig struct {
	Email        string `yaml:"email" json:"email"`
	OrgShortName string `yaml:"org_short_name" json:"org_short_name"`

	// Shard is the backend shard sent with the login request.
	// Default: prod1
	Shard string `yaml:"shard" json:"shard"`

	// PasswordFile holds the console password. When empty the CLI
	// prompts on the terminal.
	PasswordFile string `yaml:"password_file" json:"password_file"`
}

// ExternalConfig configures the public API client.
type ExternalConfig struct {
	// Region is the API host prefix, "api" for the US region.
	Region string `yaml:"region" json:"region"`

	// MaxAttempts bounds attempts per request, including the first.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`

	// InitialBackoff is the delay before the first retry; each later
	// retry doubles it. Default: 500ms
	InitialBackoff string `yaml:"initial_backoff" json:"initial_backoff"`
}

// InternalConfig configures the console API client.
type InternalConfig struct {
	// RequestsPerSecond paces console calls. Zero disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`

	// Timeout bounds a single console request. Default: 30s
	Timeout string `yaml:"timeout" json:"timeout"`
}

// MFAConfig controls the interactive challenge.
type MFAConfig struct {
	// InvalidCode is "retain" (prompt again against the same
	// challenge) or "discard" (abandon the challenge and require a
	// fresh login).
	InvalidCode string `yaml:"invalid_code" json:"invalid_code"`

	// Attempts is the number of codes the CLI prompts for before
	// giving up under the retain policy.
	Attempts int `yaml:"attempts" json:"attempts"`
}

// ScanConfig controls inventory collection.
type ScanConfig struct {
	// Escalate grants the admin the access-control and global-site
	// roles before scanning.
	Escalate bool `yaml:"escalate" json:"escalate"`

	// ExcludeEmails are user e-mail addresses never offered for
	// deletion, in addition to the logged-in admin.
	ExcludeEmails []string `yaml:"exclude_emails" json:"exclude_emails"`
}

// ArchiveConfig controls run archives.
type ArchiveConfig struct {
	Directory string `yaml:"directory" json:"directory"`

	// Compression is "zstd", "lz4", or "none".
	Compression string `yaml:"compression" json:"compression"`

	// Recipients are age1... public keys archives are sealed to.
	Recipients []string `yaml:"recipients" json:"recipients"`
}

// HistoryConfig locates the run history database.
type HistoryConfig struct {
	Path string `yaml:"path" json:"path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, ".local", "state", "decommission")

	return &Config{
		Root: root,
		Account: AccountConfig{
			Shard: "prod1",
		},
		External: ExternalConfig{
			Region:         "api",
			MaxAttempts:    4,
			InitialBackoff: "500ms",
		},
		Internal: InternalConfig{
			Timeout: "30s",
		},
		MFA: MFAConfig{
			InvalidCode: "retain",
			Attempts:    3,
		},
		Scan: ScanConfig{
			Escalate: true,
		},
		Archive: ArchiveConfig{
			Directory:   "${DECOMMISSION_ROOT}/archives",
			Compression: "zstd",
		},
		History: HistoryConfig{
			Path: "${DECOMMISSION_ROOT}/history.db",
		},
	}
}

// Load reads the file at path, or at $DECOMMISSION_CONFIG when path is
// empty. With neither set it returns Default with environment
// overrides applied.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("DECOMMISSION_CONFIG")
	}
	if path == "" {
		cfg := Default()
		cfg.applyEnvironment()
		cfg.expandVariables()
		return cfg, nil
	}
	return LoadFile(path)
}

// LoadFile reads a YAML or JSONC file over Default, then applies
// environment overrides and variable expansion.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	cfg.applyEnvironment()
	cfg.expandVariables()
	return cfg, nil
}

// environmentOverrides maps variables to the fields they replace.
func (c *Config) environmentOverrides() map[string]*string {
	return map[string]*string{
		"VERKADA_EMAIL":          &c.Account.Email,
		"VERKADA_ORG_SHORT_NAME": &c.Account.OrgShortName,
		"VERKADA_SHARD":          &c.Account.Shard,
		"VERKADA_REGION":         &c.External.Region,
		"VERKADA_PASSWORD_FILE":  &c.Account.PasswordFile,
		"DECOMMISSION_HISTORY":   &c.History.Path,
	}
}

func (c *Config) applyEnvironment() {
	for name, field := range c.environmentOverrides() {
		if value := os.Getenv(name); value != "" {
			*field = value
		}
	}
}

func (c *Config) expandVariables() {
	c.Root = expandVars(c.Root, map[string]string{"HOME": os.Getenv("HOME")})
	vars := map[string]string{
		"DECOMMISSION_ROOT": c.Root,
		"HOME":              os.Getenv("HOME"),
	}
	c.Account.PasswordFile = expandVars(c.Account.PasswordFile, vars)
	c.Archive.Directory = expandVars(c.Archive.Directory, vars)
	c.History.Path = expandVars(c.History.Path, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars replaces ${NAME} and ${NAME:-default}, preferring vars over
// the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, fallback := parts[1], parts[2]
		if value := vars[name]; value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return fallback
	})
}

// InitialBackoff parses External.InitialBackoff.
func (c *Config) InitialBackoff() (time.Duration, error) {
	return parsePositiveDuration("external.initial_backoff", c.External.InitialBackoff)
}

// InternalTimeout parses Internal.Timeout.
func (c *Config) InternalTimeout() (time.Duration, error) {
	return parsePositiveDuration("internal.timeout", c.Internal.Timeout)
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return duration, nil
}

// Validate reports every configuration error at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Account.Email == "" {
		errs = append(errs, errors.New("account.email is required"))
	}
	if c.Account.OrgShortName == "" {
		errs = append(errs, errors.New("account.org_short_name is required"))
	}
	if c.Account.Shard == "" {
		errs = append(errs, errors.New("account.shard is required"))
	}
	if c.External.Region == "" {
		errs = append(errs, errors.New("external.region is required"))
	}
	if c.External.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("external.max_attempts must be at least 1, got %d", c.External.MaxAttempts))
	}
	if _, err := c.InitialBackoff(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.InternalTimeout(); err != nil {
		errs = append(errs, err)
	}
	if c.Internal.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("internal.requests_per_second must not be negative"))
	}
	switch c.MFA.InvalidCode {
	case "retain", "discard":
	default:
		errs = append(errs, fmt.Errorf("mfa.invalid_code must be retain or discard, got %q", c.MFA.InvalidCode))
	}
	if c.MFA.Attempts < 1 {
		errs = append(errs, fmt.Errorf("mfa.attempts must be at least 1, got %d", c.MFA.Attempts))
	}
	switch c.Archive.Compression {
	case "zstd", "lz4", "none":
	default:
		errs = append(errs, fmt.Errorf("archive.compression must be zstd, lz4, or none, got %q", c.Archive.Compression))
	}

	return errors.Join(errs...)
}
