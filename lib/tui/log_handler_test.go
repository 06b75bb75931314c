// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bureau-foundation/decommission/lib/testutil"
)

// logRecorder quits on the first LogMsg it sees.
type logRecorder struct {
	got LogMsg
}

func (r *logRecorder) Init() tea.Cmd { return nil }

func (r *logRecorder) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if logMsg, ok := msg.(LogMsg); ok {
		r.got = logMsg
		return r, tea.Quit
	}
	return r, nil
}

func (r *logRecorder) View() string { return "" }

func TestLogHandlerDropsBeforeProgram(t *testing.T) {
	handler := NewLogHandler(slog.LevelInfo)
	logger := slog.New(handler)
	logger.Warn("nobody listening")
}

func TestLogHandlerLevel(t *testing.T) {
	handler := NewLogHandler(slog.LevelWarn)
	if handler.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info enabled on a warn handler")
	}
	if !handler.Enabled(context.Background(), slog.LevelError) {
		t.Error("error disabled on a warn handler")
	}
}

func TestLogHandlerSendsSummary(t *testing.T) {
	recorder := &logRecorder{}
	program := tea.NewProgram(recorder,
		tea.WithInput(nil),
		tea.WithOutput(io.Discard),
		tea.WithoutRenderer(),
		tea.WithoutSignalHandler(),
	)

	handler := NewLogHandler(slog.LevelInfo)
	handler.SetProgram(program)
	logger := slog.New(handler).With("run_id", "r1").WithGroup("asset")

	done := make(chan error, 1)
	go func() {
		_, err := program.Run()
		done <- err
	}()
	logger.Warn("deletion failed", "id", "cam-1")

	if err := testutil.RequireReceive(t, done, 5*time.Second, "program receiving the log record"); err != nil {
		t.Fatalf("program: %v", err)
	}

	want := "deletion failed (run_id=r1, asset.id=cam-1)"
	if recorder.got.Summary != want {
		t.Errorf("summary = %q, want %q", recorder.got.Summary, want)
	}
	if recorder.got.Level != slog.LevelWarn {
		t.Errorf("level = %v, want warn", recorder.got.Level)
	}
}
