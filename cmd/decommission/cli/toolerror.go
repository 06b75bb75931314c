// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import "fmt"

// ErrorCategory tells the operator what kind of action an error calls
// for.
type ErrorCategory string

const (
	// CategoryValidation is bad input: fix the flags and rerun.
	CategoryValidation ErrorCategory = "validation"

	// CategoryNotFound is a missing archive, run, or site.
	CategoryNotFound ErrorCategory = "not_found"

	// CategoryForbidden is a rejected login or missing permission.
	CategoryForbidden ErrorCategory = "forbidden"

	// CategoryConflict is existing state in the way, such as the
	// organization's API key limit.
	CategoryConflict ErrorCategory = "conflict"

	// CategoryTransient is a failure that may pass on retry.
	CategoryTransient ErrorCategory = "transient"

	// CategoryInternal is everything else.
	CategoryInternal ErrorCategory = "internal"
)

// ToolError is a command error with a category. It unwraps to the
// underlying error.
type ToolError struct {
	Category ErrorCategory
	Err      error
}

func (e *ToolError) Error() string { return e.Err.Error() }

func (e *ToolError) Unwrap() error { return e.Err }

// ExitCode maps categories to distinct exit codes so scripts can tell
// bad input (2) from a refused login (3) from everything else (1).
func (e *ToolError) ExitCode() int {
	switch e.Category {
	case CategoryValidation:
		return 2
	case CategoryForbidden:
		return 3
	default:
		return 1
	}
}

// Validation is bad input.
func Validation(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryValidation, Err: fmt.Errorf(format, args...)}
}

// NotFound is a missing resource.
func NotFound(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryNotFound, Err: fmt.Errorf(format, args...)}
}

// Forbidden is a refused login or permission.
func Forbidden(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryForbidden, Err: fmt.Errorf(format, args...)}
}

// Conflict is existing state in the way.
func Conflict(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryConflict, Err: fmt.Errorf(format, args...)}
}

// Transient is a failure worth retrying.
func Transient(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryTransient, Err: fmt.Errorf(format, args...)}
}

// Internal is an unexpected failure.
func Internal(format string, args ...any) *ToolError {
	return &ToolError{Category: CategoryInternal, Err: fmt.Errorf(format, args...)}
}
