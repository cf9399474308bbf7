// SPDX-License-Identifier: MPL-2.0

// Package fault defines the error taxonomy of the runtime: stable error
// codes, structured error types that wrap matching sentinels, and the exit
// code contract surfaced by the CLI and worker.
package fault

import (
	"context"
	"errors"
)

// Code is a stable machine-readable error classification carried across the
// wire protocol and mapped onto process exit codes.
type Code string

const (
	// CodeUnknown classifies errors outside the taxonomy.
	CodeUnknown Code = "unknown"
	// CodeEntityNotFound signals an unregistered entity type reference.
	CodeEntityNotFound Code = "entity_not_found"
	// CodeTransformNotFound signals an unknown transform label for a
	// resolved entity type.
	CodeTransformNotFound Code = "transform_not_found"
	// CodeTransformCollision signals two transform bindings competing for
	// the same label over overlapping version ranges.
	CodeTransformCollision Code = "transform_collision"
	// CodeDuplicateEntity signals a repeated id@version registration.
	CodeDuplicateEntity Code = "duplicate_entity"
	// CodeConfigInvalid signals settings that failed resolution.
	CodeConfigInvalid Code = "config_invalid"
	// CodeDependencyMissing signals an absent external tool dependency.
	CodeDependencyMissing Code = "dependency_missing"
	// CodeTransformTimeout signals an invocation stopped at its deadline.
	CodeTransformTimeout Code = "transform_timeout"
	// CodeTransformFailed classifies failures raised inside a transform.
	CodeTransformFailed Code = "transform_failed"
	// CodeNetworkError classifies upstream connectivity failures.
	CodeNetworkError Code = "network_error"
	// CodeRateLimited signals an upstream service throttling the caller.
	CodeRateLimited Code = "rate_limited"
	// CodeAuthFailed signals rejected credentials for an upstream service.
	CodeAuthFailed Code = "auth_failed"
)

// IsValid reports whether the code belongs to the taxonomy.
func (c Code) IsValid() bool {
	switch c {
	case CodeUnknown, CodeEntityNotFound, CodeTransformNotFound,
		CodeTransformCollision, CodeDuplicateEntity, CodeConfigInvalid,
		CodeDependencyMissing, CodeTransformTimeout, CodeTransformFailed,
		CodeNetworkError, CodeRateLimited, CodeAuthFailed:
		return true
	}
	return false
}

// String returns the code as a plain string.
func (c Code) String() string {
	return string(c)
}

// CodeOf classifies any error into a taxonomy code. Errors raised by this
// module carry their own classification; bare wrapped sentinels classify by
// class; context deadline errors map to the timeout code; everything else is
// unknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var coded interface{ FaultCode() Code }
	if errors.As(err, &coded) {
		return coded.FaultCode()
	}

	for sentinel, code := range sentinelCodes {
		if errors.Is(err, sentinel) {
			return code
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return CodeTransformTimeout
	}

	return CodeUnknown
}
