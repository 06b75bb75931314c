// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret holds operator credentials (the console password,
// the granular API key minted for a run, age identities) in memory
// that lives outside the Go heap.
//
// A [Buffer] is an anonymous mmap region, mlocked so it never reaches
// swap and marked MADV_DONTDUMP so it never reaches a core file. Close
// zeroes and unmaps it. Conversions to string happen only at the JSON
// or header boundary where a string is unavoidable.
package secret
