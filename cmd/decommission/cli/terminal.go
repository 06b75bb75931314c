// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/bureau-foundation/decommission/lib/secret"
)

// ErrNoTerminal is returned by prompts on a Terminal that has neither
// a TTY nor scripted input.
var ErrNoTerminal = errors.New("no terminal available for interactive input")

// Terminal reads operator input. Prompts go to the output writer, never
// stdout, so command output stays pipeable.
type Terminal struct {
	reader      *bufio.Reader
	output      io.Writer
	fd          int
	interactive bool
	scripted    bool
}

// NewTerminal reads from stdin and prompts on stderr.
func NewTerminal() *Terminal {
	fd := int(os.Stdin.Fd())
	return &Terminal{
		reader:      bufio.NewReader(os.Stdin),
		output:      os.Stderr,
		fd:          fd,
		interactive: term.IsTerminal(fd),
	}
}

// NewScriptedTerminal answers prompts from lines of input. Passwords
// are read as plain lines.
func NewScriptedTerminal(input io.Reader, output io.Writer) *Terminal {
	return &Terminal{
		reader:   bufio.NewReader(input),
		output:   output,
		fd:       -1,
		scripted: true,
	}
}

// Interactive reports whether the terminal is a TTY.
func (t *Terminal) Interactive() bool { return t.interactive }

// Output is where prompts are written.
func (t *Terminal) Output() io.Writer { return t.output }

func (t *Terminal) usable() error {
	if !t.interactive && !t.scripted {
		return ErrNoTerminal
	}
	return nil
}

// Password prompts with echo disabled.
func (t *Terminal) Password(prompt string) (*secret.Buffer, error) {
	if err := t.usable(); err != nil {
		return nil, err
	}
	fmt.Fprint(t.output, prompt)
	if !t.interactive {
		line, err := t.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			secret.Zero(line)
			return nil, fmt.Errorf("reading password: %w", err)
		}
		trimmed := bytes.TrimSpace(line)
		buffer, err := secret.NewFromBytes(trimmed)
		secret.Zero(line)
		return buffer, err
	}
	data, err := term.ReadPassword(t.fd)
	fmt.Fprintln(t.output)
	if err != nil {
		secret.Zero(data)
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return secret.NewFromBytes(data)
}

// Line prompts and returns one trimmed line.
func (t *Terminal) Line(prompt string) (string, error) {
	if err := t.usable(); err != nil {
		return "", err
	}
	fmt.Fprint(t.output, prompt)
	line, err := t.reader.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// Confirm asks the operator to type expected exactly.
func (t *Terminal) Confirm(prompt, expected string) (bool, error) {
	answer, err := t.Line(fmt.Sprintf("%s\nType %q to continue: ", prompt, expected))
	if err != nil {
		return false, err
	}
	return answer == expected, nil
}

// Choose lists options numbered from 1 and returns the chosen index,
// asking again until the answer is in range.
func (t *Terminal) Choose(prompt string, options []string) (int, error) {
	if len(options) == 0 {
		return 0, fmt.Errorf("nothing to choose from")
	}
	for i, option := range options {
		fmt.Fprintf(t.output, "%3d. %s\n", i+1, option)
	}
	for {
		answer, err := t.Line(prompt)
		if err != nil {
			return 0, err
		}
		var index int
		if _, scanErr := fmt.Sscanf(answer, "%d", &index); scanErr == nil && index >= 1 && index <= len(options) {
			return index - 1, nil
		}
		fmt.Fprintf(t.output, "Enter a number between 1 and %d.\n", len(options))
	}
}
