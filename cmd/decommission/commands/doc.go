// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the decommission command tree.
//
// Commands that touch an organization share one connection flow
// (connect.go): load configuration, log in to the console with an
// interactive one-time code if asked for, optionally grant the admin
// the access-control and global-site roles, mint a short-lived API key,
// and exchange it for a public API token. The scan and run commands
// then collect the inventory through both surfaces.
package commands
