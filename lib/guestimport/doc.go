// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package guestimport turns a guest site's visitors into organization
// users.
//
// Visits are read through the public API, possibly from a different
// organization than the one receiving the invitations, for one
// calendar day in a given location. Each distinct e-mail address is
// invited once. A failed invitation is recorded and the import moves
// on.
package guestimport
