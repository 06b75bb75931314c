// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build identity of the decommission
// binary. Values are stamped at link time:
//
//	go build -ldflags "-X github.com/bureau-foundation/decommission/lib/version.GitCommit=$(git rev-parse --short HEAD)" ./cmd/decommission
package version
