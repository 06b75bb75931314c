// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework of the decommission tool.
//
// A [Command] tree dispatches on the first positional argument.
// Leaf commands declare their flags as a tagged params struct (see
// [BindFlags]) and receive a context and a logger built by
// [NewCommandLogger]. Errors carry a [ToolError] category; a command
// that has already written its own output returns an [ExitError] to
// set the exit code silently.
//
// [Terminal] reads passwords, one-time codes, and confirmations. It
// refuses to prompt when stdin is not a terminal unless it was built
// over scripted input.
package cli
