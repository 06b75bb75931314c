// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil bounds and summarizes HTTP response bodies from the
// Verkada surfaces.
//
// Device listings from a large organization can run to a few megabytes,
// so reads are capped at [MaxResponseSize] rather than trusting the
// server. [Snippet] trims bodies for inclusion in error messages and
// logs, where a full HTML error page would drown the useful part.
package netutil

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// MaxResponseSize caps every JSON response read: 64 MB.
const MaxResponseSize int64 = 64 << 20

// SnippetLength is the default length used by Snippet.
const SnippetLength = 512

// ReadResponse reads at most MaxResponseSize bytes of body.
func ReadResponse(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, MaxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return data, nil
}

// DecodeResponse reads body with ReadResponse and unmarshals it into v.
func DecodeResponse(body io.Reader, v any) error {
	data, err := ReadResponse(body)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// Snippet returns body as a single trimmed line no longer than
// SnippetLength bytes, cut on a rune boundary.
func Snippet(body []byte) string {
	text := strings.Join(strings.Fields(string(body)), " ")
	if len(text) <= SnippetLength {
		return text
	}
	cut := SnippetLength
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}
