// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/inventory"
)

var (
	markdownConverter     goldmark.Markdown
	markdownConverterOnce sync.Once
)

func converter() goldmark.Markdown {
	markdownConverterOnce.Do(func() {
		markdownConverter = goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithXHTML()),
		)
	})
	return markdownConverter
}

// Markdown writes the inventory, and the ledger when non-nil, as
// GitHub-flavored markdown.
func Markdown(w io.Writer, inv *inventory.Inventory, ledger *decommission.Ledger) error {
	var out strings.Builder

	fmt.Fprintf(&out, "# Inventory Report: %s\n\n", escapeCell(inv.Organization))
	fmt.Fprintf(&out, "Generated on %s.\n\n", inv.CollectedAt.UTC().Format(timestampLayout+" UTC"))

	out.WriteString("## Breakdown\n\n| Category | Count |\n|---|---:|\n")
	for _, category := range inventory.ReportOrder {
		fmt.Fprintf(&out, "| %s | %d |\n", category, inv.Count(category))
	}
	fmt.Fprintf(&out, "| **TOTAL ASSETS** | **%d** |\n\n", inv.Total())

	if len(inv.Errors) > 0 {
		out.WriteString("## Listing failures\n\n")
		for _, fetchError := range inv.Errors {
			fmt.Fprintf(&out, "- **%s**: %s\n", fetchError.Category, escapeCell(fetchError.Message))
		}
		out.WriteString("\n")
	}

	for _, category := range inventory.ReportOrder {
		assets := inv.Get(category)
		fmt.Fprintf(&out, "## %s (%d)\n\n", category, len(assets))
		if len(assets) == 0 {
			out.WriteString("_No items found in this category._\n\n")
			continue
		}
		out.WriteString("| Name / Description | ID |\n|---|---|\n")
		for _, asset := range assets {
			fmt.Fprintf(&out, "| %s | `%s` |\n", escapeCell(asset.Label()), asset.Key())
		}
		out.WriteString("\n")
	}

	if ledger != nil {
		out.WriteString("## Deletion run\n\n")
		fmt.Fprintf(&out, "- Run: `%s`\n- Started: %s\n- Finished: %s\n- Deleted: %d\n- Failed: %d\n\n",
			ledger.RunID,
			ledger.StartedAt.UTC().Format(timestampLayout),
			ledger.FinishedAt.UTC().Format(timestampLayout),
			ledger.SuccessCount, ledger.FailCount)
		if len(ledger.Failed) > 0 {
			out.WriteString("| Category | Name / Description | ID | Error |\n|---|---|---|---|\n")
			for _, failure := range ledger.Failed {
				fmt.Fprintf(&out, "| %s | %s | `%s` | %s |\n",
					failure.Asset.Category, escapeCell(failure.Asset.Label()),
					failure.Asset.Key(), escapeCell(failure.Error))
			}
			out.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, out.String())
	return err
}

// HTML renders the markdown report as a standalone HTML page.
func HTML(w io.Writer, inv *inventory.Inventory, ledger *decommission.Ledger) error {
	var source bytes.Buffer
	if err := Markdown(&source, inv, ledger); err != nil {
		return err
	}
	var body bytes.Buffer
	if err := converter().Convert(source.Bytes(), &body); err != nil {
		return fmt.Errorf("report: rendering HTML: %w", err)
	}
	_, err := fmt.Fprintf(w, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\" />\n"+
		"<title>Inventory Report: %s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		htmlEscaper.Replace(inv.Organization), body.String())
	return err
}

var (
	cellEscaper = strings.NewReplacer("|", `\|`, "\n", " ", "\r", "")
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
)

func escapeCell(value string) string {
	return cellEscaper.Replace(value)
}
