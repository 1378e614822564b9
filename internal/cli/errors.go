// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitConfigError indicates a missing API key or an invalid config file
	ExitConfigError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitGeneralError indicates any other failure (archive, filesystem)
	ExitGeneralError = 3
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ConfigError reports configuration that prevents a command from running.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// UsageError reports invalid arguments. Usage, when set, is printed after
// the message.
type UsageError struct {
	Reason string
	Usage  string
}

func (e *UsageError) Error() string {
	return e.Reason
}

// CommandError represents a failed subcommand with context.
type CommandError struct {
	Command string // e.g. "history"
	Action  string // e.g. "delete"
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("%s %s failed: %v", e.Command, e.Action, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// ErrMissingArgument returns a usage error for a missing required argument.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{
		Reason: fmt.Sprintf("missing required argument: %s", argName),
		Usage:  usage,
	}
}

// ErrUnsupportedFormat returns a usage error listing the accepted formats.
func ErrUnsupportedFormat(format string, supported []string) error {
	return &UsageError{
		Reason: fmt.Sprintf("unsupported format %q (supported: %v)", format, supported),
	}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w in the standard format.
func DisplayError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())

	var usageErr *UsageError
	if errors.As(err, &usageErr) && usageErr.Usage != "" {
		fmt.Fprintf(w, "\nUsage: %s\n", usageErr.Usage)
	}
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return ExitConfigError
	}
	var usageErr *UsageError
	if errors.As(err, &usageErr) {
		return ExitUsageError
	}
	return ExitGeneralError
}
