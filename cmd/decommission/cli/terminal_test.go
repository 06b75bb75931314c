// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestScriptedTerminal(t *testing.T) {
	var output bytes.Buffer
	terminal := NewScriptedTerminal(strings.NewReader("hunter2\n123456\nacme\n9\n2\n"), &output)

	password, err := terminal.Password("Password: ")
	if err != nil {
		t.Fatalf("Password: %v", err)
	}
	defer password.Close()
	if password.String() != "hunter2" {
		t.Errorf("password = %q", password.String())
	}

	code, err := terminal.Line("Code: ")
	if err != nil || code != "123456" {
		t.Errorf("Line = %q, %v", code, err)
	}

	confirmed, err := terminal.Confirm("Delete everything?", "acme")
	if err != nil || !confirmed {
		t.Errorf("Confirm = %v, %v", confirmed, err)
	}

	index, err := terminal.Choose("Site: ", []string{"HQ", "Annex"})
	if err != nil || index != 1 {
		t.Errorf("Choose = %d, %v; want 1 after an out-of-range answer", index, err)
	}
	if !strings.Contains(output.String(), "Enter a number between 1 and 2.") {
		t.Errorf("no retry prompt in output:\n%s", output.String())
	}
}

func TestConfirmMismatch(t *testing.T) {
	terminal := NewScriptedTerminal(strings.NewReader("ACME\n"), &bytes.Buffer{})
	confirmed, err := terminal.Confirm("Delete?", "acme")
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if confirmed {
		t.Error("Confirm accepted a case-mismatched answer")
	}
}

func TestTerminalWithoutInput(t *testing.T) {
	terminal := &Terminal{}
	if _, err := terminal.Line("x"); !errors.Is(err, ErrNoTerminal) {
		t.Errorf("Line error = %v, want ErrNoTerminal", err)
	}
	if _, err := terminal.Password("x"); !errors.Is(err, ErrNoTerminal) {
		t.Errorf("Password error = %v, want ErrNoTerminal", err)
	}
}

func TestLineAtEOF(t *testing.T) {
	terminal := NewScriptedTerminal(strings.NewReader("last"), &bytes.Buffer{})
	line, err := terminal.Line("> ")
	if err != nil || line != "last" {
		t.Errorf("Line = %q, %v", line, err)
	}
	if _, err := terminal.Line("> "); err == nil {
		t.Error("Line after EOF succeeded")
	}
}
