// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/bureau-foundation/decommission/lib/decommission"
)

// recentLimit is how many finished assets the view lists.
const recentLimit = 8

// maxBarWidth caps the progress bar on wide terminals.
const maxBarWidth = 60

// ProgressMsg is one pipeline update.
type ProgressMsg decommission.Progress

// DoneMsg tells the model the run finished. The program quits on it.
type DoneMsg struct{}

type heatTickMsg struct{}

// KeyMap holds the progress view's bindings.
type KeyMap struct {
	Hide key.Binding
}

// DefaultKeyMap binds q and ctrl+c to hiding the view. A started run
// cannot be stopped from the view.
var DefaultKeyMap = KeyMap{
	Hide: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "hide view (deletions continue)"),
	),
}

// ProgressConfig configures a ProgressModel.
type ProgressConfig struct {
	// Title is shown above the bar, e.g. the organization name.
	Title string

	// Total is the number of planned assets.
	Total int

	// Theme defaults to DefaultTheme.
	Theme *Theme

	// Keys defaults to DefaultKeyMap.
	Keys *KeyMap

	// Now defaults to time.Now. Tests pin it.
	Now func() time.Time
}

type outcome struct {
	heatKey string
	label   string
	err     string
}

// ProgressModel is the bubbletea model of a deletion run.
type ProgressModel struct {
	title string
	total int
	theme Theme
	keys  KeyMap
	now   func() time.Time

	done       int
	deleted    int
	failed     int
	current    string
	recent     []outcome
	status     string
	statusWarn bool
	hidden     bool
	finished   bool
	ticking    bool
	width      int

	heat    *HeatTracker
	bar     progress.Model
	spinner spinner.Model
}

// NewProgressModel builds the model.
func NewProgressModel(config ProgressConfig) *ProgressModel {
	theme := DefaultTheme
	if config.Theme != nil {
		theme = *config.Theme
	}
	keys := DefaultKeyMap
	if config.Keys != nil {
		keys = *config.Keys
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &ProgressModel{
		title: config.Title,
		total: config.Total,
		theme: theme,
		keys:  keys,
		now:   now,
		heat:  NewHeatTracker(),
		bar: progress.New(
			progress.WithGradient(theme.BarStart, theme.BarEnd),
			progress.WithWidth(40),
		),
		spinner: spinner.New(
			spinner.WithSpinner(spinner.MiniDot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.Warning)),
		),
	}
}

// Init implements tea.Model.
func (model *ProgressModel) Init() tea.Cmd {
	return model.spinner.Tick
}

// Update implements tea.Model.
func (model *ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		model.width = msg.Width
		model.bar.Width = min(max(msg.Width-20, 10), maxBarWidth)
		return model, nil

	case tea.KeyMsg:
		if key.Matches(msg, model.keys.Hide) && !model.finished {
			model.hidden = true
			return model, tea.Quit
		}
		return model, nil

	case ProgressMsg:
		return model, model.record(decommission.Progress(msg))

	case LogMsg:
		model.status = msg.Summary
		model.statusWarn = msg.Level >= slog.LevelWarn
		return model, nil

	case heatTickMsg:
		if model.heat.HasHot(model.now()) {
			return model, model.scheduleHeatTick()
		}
		model.ticking = false
		return model, nil

	case DoneMsg:
		model.finished = true
		model.current = ""
		return model, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		model.spinner, cmd = model.spinner.Update(msg)
		return model, cmd
	}
	return model, nil
}

func (model *ProgressModel) record(update decommission.Progress) tea.Cmd {
	model.done = update.Done
	if update.Total > 0 {
		model.total = update.Total
	}
	label := update.Asset.Category.String() + ": " + update.Asset.DisplayName()
	heatKey := update.Asset.Category.Slug() + "/" + update.Asset.Key()
	entry := outcome{heatKey: heatKey, label: label}
	kind := HeatDeleted
	if update.Err != nil {
		model.failed++
		entry.err = update.Err.Error()
		kind = HeatFailed
	} else {
		model.deleted++
	}
	model.heat.Ignite(heatKey, kind, model.now())

	model.recent = append(model.recent, entry)
	if len(model.recent) > recentLimit {
		model.recent = model.recent[len(model.recent)-recentLimit:]
	}
	model.current = label

	if model.ticking {
		return nil
	}
	model.ticking = true
	return model.scheduleHeatTick()
}

func (model *ProgressModel) scheduleHeatTick() tea.Cmd {
	return tea.Tick(HeatTickInterval, func(time.Time) tea.Msg {
		return heatTickMsg{}
	})
}

// View implements tea.Model.
func (model *ProgressModel) View() string {
	theme := model.theme
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.HeaderForeground)
	faint := lipgloss.NewStyle().Foreground(theme.FaintText)
	deleted := lipgloss.NewStyle().Foreground(theme.Deleted)
	failed := lipgloss.NewStyle().Foreground(theme.Failed)

	var builder strings.Builder
	title := "Decommissioning"
	if model.title != "" {
		title += " " + model.title
	}
	builder.WriteString(header.Render(title) + "\n\n")

	builder.WriteString(model.bar.ViewAs(model.Fraction()))
	fmt.Fprintf(&builder, "  %d/%d\n", model.done, model.total)
	fmt.Fprintf(&builder, "%s  %s\n\n",
		deleted.Render(fmt.Sprintf("✓ %d deleted", model.deleted)),
		failed.Render(fmt.Sprintf("✗ %d failed", model.failed)),
	)

	now := model.now()
	for _, entry := range model.recent {
		builder.WriteString(model.renderOutcome(entry, now) + "\n")
	}

	switch {
	case model.finished:
		builder.WriteString("\n" + header.Render("Done.") + "\n")
	case model.current != "":
		builder.WriteString("\n" + model.spinner.View() + " " + faint.Render("last: "+model.truncate(model.current)) + "\n")
	default:
		builder.WriteString("\n" + model.spinner.View() + " " + faint.Render("starting") + "\n")
	}

	if model.status != "" {
		style := faint
		if model.statusWarn {
			style = lipgloss.NewStyle().Foreground(theme.Warning)
		}
		builder.WriteString(style.Render(model.truncate(model.status)) + "\n")
	}
	if !model.finished {
		help := model.keys.Hide.Help()
		builder.WriteString(lipgloss.NewStyle().Foreground(theme.HelpText).Render(help.Key+" "+help.Desc) + "\n")
	}
	return builder.String()
}

func (model *ProgressModel) renderOutcome(entry outcome, now time.Time) string {
	failedOutcome := entry.err != ""
	mark := "✓"
	text := entry.label
	if failedOutcome {
		mark = "✗"
		text += ": " + entry.err
	}
	style := lipgloss.NewStyle().Foreground(model.theme.OutcomeColor(failedOutcome))
	if model.heat.Heat(entry.heatKey, now) > 0.5 {
		style = style.Background(model.theme.HotAccent(model.heat.Kind(entry.heatKey)))
	}
	return style.Render(mark + " " + model.truncate(text))
}

func (model *ProgressModel) truncate(text string) string {
	if model.width <= 4 {
		return text
	}
	return ansi.Truncate(text, model.width-4, "…")
}

// Fraction is the completed share of the run, 0 when nothing is
// planned.
func (model *ProgressModel) Fraction() float64 {
	if model.total == 0 {
		return 0
	}
	return float64(model.done) / float64(model.total)
}

// Deleted is the running success count.
func (model *ProgressModel) Deleted() int { return model.deleted }

// Failed is the running failure count.
func (model *ProgressModel) Failed() int { return model.failed }

// Hidden reports whether the operator closed the view before the run
// finished.
func (model *ProgressModel) Hidden() bool { return model.hidden }

// ProgramSink forwards pipeline progress into a running program.
type ProgramSink struct {
	program *tea.Program
}

// NewProgramSink returns a sink sending to program.
func NewProgramSink(program *tea.Program) *ProgramSink {
	return &ProgramSink{program: program}
}

// Progress implements decommission.ProgressSink.
func (sink *ProgramSink) Progress(update decommission.Progress) {
	sink.program.Send(ProgressMsg(update))
}

// Finish tells the program the run is over.
func (sink *ProgramSink) Finish() {
	sink.program.Send(DoneMsg{})
}
