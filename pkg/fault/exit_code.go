// SPDX-License-Identifier: MPL-2.0

package fault

import "fmt"

// ExitCode is a process exit status as surfaced by the CLI and worker.
type ExitCode int

const (
	// ExitSuccess indicates a fully successful invocation.
	ExitSuccess ExitCode = 0
	// ExitFailure indicates a failure outside the specific classes below.
	ExitFailure ExitCode = 1
	// ExitEntityNotFound indicates an unknown entity type reference.
	ExitEntityNotFound ExitCode = 2
	// ExitTransformNotFound indicates an unknown transform label.
	ExitTransformNotFound ExitCode = 3
	// ExitTransformFailed indicates a transform that started and failed.
	ExitTransformFailed ExitCode = 4
	// ExitTransformTimeout indicates a transform stopped at its deadline.
	ExitTransformTimeout ExitCode = 5
	// ExitConfigInvalid indicates settings that failed resolution.
	ExitConfigInvalid ExitCode = 6
	// ExitNetworkError indicates upstream connectivity trouble.
	ExitNetworkError ExitCode = 7
)

// ExitCode maps the taxonomy code onto the process exit status contract.
// Registration-time classes (collision, duplicate) surface as the generic
// failure code: they never terminate a run on their own.
func (c Code) ExitCode() ExitCode {
	switch c {
	case "":
		return ExitSuccess
	case CodeEntityNotFound:
		return ExitEntityNotFound
	case CodeTransformNotFound:
		return ExitTransformNotFound
	case CodeTransformFailed, CodeDependencyMissing:
		return ExitTransformFailed
	case CodeTransformTimeout:
		return ExitTransformTimeout
	case CodeConfigInvalid:
		return ExitConfigInvalid
	case CodeNetworkError, CodeRateLimited:
		return ExitNetworkError
	default:
		return ExitFailure
	}
}

// Int returns the exit code as a plain int for os.Exit.
func (e ExitCode) Int() int {
	return int(e)
}

// IsSuccess reports whether the exit code signals success.
func (e ExitCode) IsSuccess() bool {
	return e == ExitSuccess
}

// String returns a short description of the exit code.
func (e ExitCode) String() string {
	switch e {
	case ExitSuccess:
		return "success"
	case ExitFailure:
		return "failure"
	case ExitEntityNotFound:
		return "entity not found"
	case ExitTransformNotFound:
		return "transform not found"
	case ExitTransformFailed:
		return "transform failed"
	case ExitTransformTimeout:
		return "transform timeout"
	case ExitConfigInvalid:
		return "config invalid"
	case ExitNetworkError:
		return "network error"
	default:
		return fmt.Sprintf("exit code %d", int(e))
	}
}
