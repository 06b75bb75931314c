// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import "github.com/charmbracelet/lipgloss"

// Theme is the palette of the progress view. Colors are ANSI 256
// codes.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color

	Deleted lipgloss.Color
	Failed  lipgloss.Color
	Warning lipgloss.Color

	// Background tints for outcomes that just arrived.
	HotAccentDeleted lipgloss.Color
	HotAccentFailed  lipgloss.Color

	// Progress bar gradient.
	BarStart string
	BarEnd   string
}

// OutcomeColor is the foreground for a finished asset.
func (theme Theme) OutcomeColor(failed bool) lipgloss.Color {
	if failed {
		return theme.Failed
	}
	return theme.Deleted
}

// HotAccent is the background tint for a fresh outcome of kind.
func (theme Theme) HotAccent(kind HeatKind) lipgloss.Color {
	if kind == HeatFailed {
		return theme.HotAccentFailed
	}
	return theme.HotAccentDeleted
}

// DefaultTheme suits a dark 256-color terminal.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),

	Deleted: lipgloss.Color("114"), // green
	Failed:  lipgloss.Color("196"), // red
	Warning: lipgloss.Color("220"), // amber

	HotAccentDeleted: lipgloss.Color("22"), // dark green tint
	HotAccentFailed:  lipgloss.Color("52"), // dark red tint

	BarStart: "#5A56E0",
	BarEnd:   "#EE6FF8",
}
