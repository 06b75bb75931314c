// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package report renders inventories and deletion ledgers, and stores
// them as run archives.
//
// [Text] writes the terminal report: a breakdown of counts per
// category followed by one table per category. [Markdown] writes the
// same content as GitHub-flavored markdown, and [HTML] converts that
// markdown with goldmark. [Raw] pretty-prints an asset's original API
// payload, highlighted when color is enabled.
//
// An archive is a CBOR-encoded [Archive], compressed with zstd or lz4,
// prefixed with a BLAKE3 digest of the encoded payload, and optionally
// sealed to age recipients. [WriteArchive] and [ReadArchive] are
// inverses; a corrupted or tampered archive fails the digest check.
package report
