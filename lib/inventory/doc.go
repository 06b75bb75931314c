// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inventory lists an organization's Verkada assets.
//
// Every asset kind is a [Category]. The [Registry] maps each category
// to a [Descriptor] naming how to list it and how to delete one item:
// which surface (console or public API), which console subdomain,
// which path, and which reply field carries the items. The table is a
// fixed array indexed by category and is validated when the registry
// is built, so a category cannot exist without its strategy.
//
// A [Collector] walks the categories in scan order and produces an
// [Inventory]. Devices that appear under more than one product are
// reported once: [Sanitize] drops cameras and access controllers whose
// serial numbers already belong to an intercom. A category that fails
// to list is recorded in Inventory.Errors and reported as empty; the
// scan always finishes.
package inventory
