// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds the timeout helpers used by tests that wait
// on another goroutine.
//
// [RequireReceive] and [RequireClosed] wrap the
// select-with-deadline pattern so that a hung goroutine fails the test
// instead of stalling the run. They are the only place tests touch the
// wall clock; everything time-dependent under test runs on
// clock.FakeClock.
package testutil
