// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package history records decommission runs in a local SQLite
// database.
//
// Every run gets one row in runs and one row per attempted asset in
// results. Preparatory failures (an alarm system that would not
// delete ahead of its site) are stored as results of kind
// "secondary". The full asset is kept as a CBOR blob so a later
// history query can show exactly what was removed, including the raw
// API record.
//
// The store is append-only: a run is written once, in a single
// IMMEDIATE transaction, after the pipeline finishes. A crash before
// that leaves no partial run.
package history
