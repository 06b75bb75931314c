// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the single CBOR configuration used for run archives.
//
// Encoding is RFC 8949 core deterministic: the same inventory and
// ledger always encode to the same bytes, so an archive digest is
// stable across re-encodes. Times are written as RFC 3339 strings with
// nanoseconds so that ledger timestamps survive a round trip exactly.
package codec
