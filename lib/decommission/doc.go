// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package decommission deletes a selected inventory in dependency
// order.
//
// [DeletionOrder] fixes the category sequence: users first so no one
// keeps access while devices disappear, then sensors and intercoms,
// sites, controllers and cameras, and finally the alarm estate. The
// caller chooses what to delete but never the order.
//
// A [Pipeline] visits every selected asset exactly once on one
// goroutine. A failed deletion is recorded in the [Ledger] and the run
// moves on; nothing short of the process exiting stops it early. After
// each item a [Progress] update goes to the configured [ProgressSink].
package decommission
