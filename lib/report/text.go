// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"

	"github.com/bureau-foundation/decommission/lib/decommission"
	"github.com/bureau-foundation/decommission/lib/inventory"
)

const (
	// pageWidth is the width headers are centered in.
	pageWidth = 80

	// maxNameWidth truncates long names in tables.
	maxNameWidth = 60

	timestampLayout = "2006-01-02 15:04:05"
)

// TextOptions controls terminal rendering.
type TextOptions struct {
	// Color enables ANSI 256-color styling. Off produces plain ASCII,
	// suitable for files and pipes.
	Color bool
}

type styles struct {
	renderer *lipgloss.Renderer
	title    lipgloss.Style
	heading  lipgloss.Style
	faint    lipgloss.Style
	success  lipgloss.Style
	failure  lipgloss.Style
	border   lipgloss.Style
}

func newStyles(w io.Writer, options TextOptions) styles {
	profile := termenv.Ascii
	if options.Color {
		profile = termenv.ANSI256
	}
	// SetColorProfile pins the profile; without it lipgloss re-detects
	// from the environment.
	renderer := lipgloss.NewRenderer(w, termenv.WithProfile(profile))
	renderer.SetColorProfile(profile)

	return styles{
		renderer: renderer,
		title:    renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("255")).Width(pageWidth).Align(lipgloss.Center),
		heading:  renderer.NewStyle().Bold(true).Foreground(lipgloss.Color("75")),
		faint:    renderer.NewStyle().Foreground(lipgloss.Color("245")),
		success:  renderer.NewStyle().Foreground(lipgloss.Color("114")),
		failure:  renderer.NewStyle().Foreground(lipgloss.Color("196")),
		border:   renderer.NewStyle().Foreground(lipgloss.Color("240")),
	}
}

// Text writes the inventory report for inv.
func Text(w io.Writer, inv *inventory.Inventory, options TextOptions) error {
	s := newStyles(w, options)
	var out strings.Builder

	rule := strings.Repeat("=", pageWidth)
	out.WriteString(s.border.Render(rule) + "\n")
	out.WriteString(s.title.Render("Inventory Report") + "\n")
	out.WriteString(s.title.Render("Organization: "+inv.Organization) + "\n")
	out.WriteString(s.title.Render("Generated on: "+inv.CollectedAt.Local().Format(timestampLayout)) + "\n")
	out.WriteString(s.border.Render(rule) + "\n\n")

	out.WriteString(s.heading.Render("Breakdown") + "\n")
	out.WriteString(s.border.Render(strings.Repeat("-", 40)) + "\n")
	for _, category := range inventory.ReportOrder {
		fmt.Fprintf(&out, "  • %-25s : %5d\n", category.String(), inv.Count(category))
	}
	out.WriteString(s.border.Render(strings.Repeat("-", 40)) + "\n")
	fmt.Fprintf(&out, "  • %-25s : %5d\n\n", "TOTAL ASSETS", inv.Total())

	if len(inv.Errors) > 0 {
		out.WriteString(s.failure.Render("Categories that could not be listed") + "\n")
		for _, fetchError := range inv.Errors {
			out.WriteString("  " + s.failure.Render(fetchError.Category.String()) + ": " +
				s.faint.Render(ansi.Truncate(fetchError.Message, pageWidth, "...")) + "\n")
		}
		out.WriteString("\n")
	}

	for _, category := range inventory.ReportOrder {
		assets := inv.Get(category)
		out.WriteString(s.border.Render(rule) + "\n")
		out.WriteString(s.heading.Render(fmt.Sprintf("CATEGORY: %s (%d)", category, len(assets))) + "\n")
		out.WriteString(s.border.Render(rule) + "\n")
		if len(assets) == 0 {
			out.WriteString(s.faint.Render("  (No items found in this category)") + "\n\n")
			continue
		}
		rows := make([][]string, 0, len(assets))
		for _, asset := range assets {
			rows = append(rows, []string{
				ansi.Truncate(asset.Label(), maxNameWidth, "..."),
				asset.Key(),
			})
		}
		out.WriteString(s.table([]string{"Name / Description", "ID"}, rows) + "\n\n")
	}

	out.WriteString(s.border.Render(rule) + "\n")
	out.WriteString(s.title.Render("End of Report") + "\n")
	out.WriteString(s.border.Render(rule) + "\n")

	_, err := io.WriteString(w, out.String())
	return err
}

func (s styles) table(headers []string, rows [][]string) string {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(s.border).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return s.heading.Padding(0, 1)
			}
			return s.renderer.NewStyle().Padding(0, 1)
		}).
		Headers(headers...).
		Rows(rows...).
		String()
}

// Ledger writes a summary of a deletion run: counts, then a table of
// every failure, then any secondary failures.
func Ledger(w io.Writer, ledger *decommission.Ledger, options TextOptions) error {
	s := newStyles(w, options)
	var out strings.Builder

	out.WriteString(s.heading.Render("Deletion summary") + "\n")
	fmt.Fprintf(&out, "  Run:       %s\n", ledger.RunID)
	fmt.Fprintf(&out, "  Duration:  %s\n", ledger.Duration().Round(time.Millisecond))
	out.WriteString("  Deleted:   " + s.success.Render(strconv.Itoa(ledger.SuccessCount)) + "\n")
	failed := strconv.Itoa(ledger.FailCount)
	if ledger.FailCount > 0 {
		failed = s.failure.Render(failed)
	}
	out.WriteString("  Failed:    " + failed + "\n")

	if len(ledger.Failed) > 0 {
		out.WriteString("\n" + s.failure.Render("Failures") + "\n")
		out.WriteString(s.table([]string{"Category", "Name / Description", "ID", "Error"}, failureRows(ledger.Failed)) + "\n")
	}
	if len(ledger.Secondary) > 0 {
		out.WriteString("\n" + s.faint.Render("Preparatory deletions that failed") + "\n")
		out.WriteString(s.table([]string{"Category", "Name / Description", "ID", "Error"}, failureRows(ledger.Secondary)) + "\n")
	}

	_, err := io.WriteString(w, out.String())
	return err
}

func failureRows(failures []decommission.Failure) [][]string {
	rows := make([][]string, 0, len(failures))
	for _, failure := range failures {
		rows = append(rows, []string{
			failure.Asset.Category.String(),
			ansi.Truncate(failure.Asset.Label(), 40, "..."),
			failure.Asset.Key(),
			ansi.Truncate(failure.Error, 60, "..."),
		})
	}
	return rows
}
