// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts the wall clock so that retry backoff, API key
// expiry, and ledger timestamps can be driven deterministically in
// tests.
//
// Production code takes a [Clock] and is handed [Real]. Tests hand it a
// [FakeClock] from [Fake] and move time forward explicitly with
// [FakeClock.Advance]. [FakeClock.WaitForTimers] closes the race between
// a goroutine starting to wait and the test advancing the clock.
package clock
