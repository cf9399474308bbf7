// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/graftlabs/graft/pkg/fault"
)

// ExitError signals a non-zero exit code without forcing os.Exit in RunE
// handlers.
type ExitError struct {
	Code fault.ExitCode
	Err  error
}

// Error returns the error message for ExitError.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code.Int())
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError wraps a failure into an ExitError carrying the exit code its
// fault code maps to. A nil error passes through.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: fault.CodeOf(err).ExitCode(), Err: err}
}
