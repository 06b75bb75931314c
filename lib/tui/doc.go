// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui renders the live view of a deletion run.
//
// [ProgressModel] is a bubbletea model showing a progress bar, the
// asset currently being deleted, running success and failure counts,
// and the most recent outcomes, which glow briefly after they land
// (see [HeatTracker]). The pipeline runs on its own goroutine and
// reports through a [ProgramSink], which forwards each update into
// the program with Send. Log records are routed the same way by
// [LogHandler] so they appear in the status line instead of tearing
// the rendered frame.
//
// On a non-terminal the CLI skips this package and logs progress
// instead.
package tui
