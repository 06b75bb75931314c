// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/bureau-foundation/decommission/lib/inventory"
)

// Raw writes asset's API payload as indented JSON, highlighted for a
// 256-color terminal when color is true.
func Raw(w io.Writer, asset inventory.Asset, color bool) error {
	payload := asset.Raw
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	var indented bytes.Buffer
	if err := json.Indent(&indented, payload, "", "  "); err != nil {
		return fmt.Errorf("report: formatting %s payload: %w", asset.Key(), err)
	}
	indented.WriteByte('\n')

	if !color {
		_, err := w.Write(indented.Bytes())
		return err
	}
	if err := quick.Highlight(w, indented.String(), "json", "terminal256", "monokai"); err != nil {
		return fmt.Errorf("report: highlighting %s payload: %w", asset.Key(), err)
	}
	return nil
}
