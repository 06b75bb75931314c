// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the decommission tool's configuration.
//
// A single file is read, chosen by the --config flag or the
// DECOMMISSION_CONFIG environment variable. Files ending in .json or
// .jsonc are parsed as JSON with comments and trailing commas allowed;
// everything else is YAML. With no file, [Default] values are used.
//
// After the file, a small fixed set of environment variables may
// override the account identity (VERKADA_EMAIL, VERKADA_ORG_SHORT_NAME,
// VERKADA_SHARD, VERKADA_REGION, VERKADA_PASSWORD_FILE) and the history
// database (DECOMMISSION_HISTORY). Passwords themselves never appear in
// the file or the environment; only the path of a file holding one.
//
// ${HOME}, ${DECOMMISSION_ROOT}, and ${VAR:-default} are expanded in
// path fields.
package config
