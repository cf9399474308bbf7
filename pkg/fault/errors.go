// SPDX-License-Identifier: MPL-2.0

package fault

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for errors.Is checks. The structured types below wrap the
// matching sentinel, so callers can branch on the class without losing the
// detail fields.
var (
	ErrEntityNotFound     = errors.New("entity type not found")
	ErrTransformNotFound  = errors.New("transform not found")
	ErrTransformCollision = errors.New("transform collision")
	ErrDuplicateEntity    = errors.New("duplicate entity type")
	ErrConfigInvalid      = errors.New("invalid configuration")
	ErrDependencyMissing  = errors.New("missing dependency")
	ErrTransformTimeout   = errors.New("transform timed out")
)

// sentinelCodes maps each sentinel to its taxonomy code for classification
// of errors that wrap a sentinel without carrying a structured type.
var sentinelCodes = map[error]Code{
	ErrEntityNotFound:     CodeEntityNotFound,
	ErrTransformNotFound:  CodeTransformNotFound,
	ErrTransformCollision: CodeTransformCollision,
	ErrDuplicateEntity:    CodeDuplicateEntity,
	ErrConfigInvalid:      CodeConfigInvalid,
	ErrDependencyMissing:  CodeDependencyMissing,
	ErrTransformTimeout:   CodeTransformTimeout,
}

// EntityNotFoundError reports a reference to an entity type the registry
// does not hold.
type EntityNotFoundError struct {
	// Ref is the reference as written by the caller.
	Ref string
	// Versions lists registered versions of the identifier when the
	// identifier exists but the pinned version does not.
	Versions []string
}

// Error implements the error interface.
func (e *EntityNotFoundError) Error() string {
	if len(e.Versions) > 0 {
		return fmt.Sprintf("entity type %q is not registered (registered versions: %s)",
			e.Ref, strings.Join(e.Versions, ", "))
	}
	return fmt.Sprintf("entity type %q is not registered", e.Ref)
}

// Unwrap returns the sentinel for errors.Is.
func (e *EntityNotFoundError) Unwrap() error { return ErrEntityNotFound }

// FaultCode returns the taxonomy classification.
func (e *EntityNotFoundError) FaultCode() Code { return CodeEntityNotFound }

// WireDetails returns the structured detail payload.
func (e *EntityNotFoundError) WireDetails() map[string]any {
	d := map[string]any{"ref": e.Ref}
	if len(e.Versions) > 0 {
		d["registered_versions"] = e.Versions
	}
	return d
}

// TransformNotFoundError reports an unknown transform label for an entity
// type that resolved successfully.
type TransformNotFoundError struct {
	// Entity is the resolved entity reference.
	Entity string
	// Label is the transform label that was requested.
	Label string
	// Available lists the labels that are registered for the entity.
	Available []string
}

// Error implements the error interface.
func (e *TransformNotFoundError) Error() string {
	if len(e.Available) > 0 {
		return fmt.Sprintf("transform %q is not registered for %s (available: %s)",
			e.Label, e.Entity, strings.Join(e.Available, ", "))
	}
	return fmt.Sprintf("transform %q is not registered for %s", e.Label, e.Entity)
}

// Unwrap returns the sentinel for errors.Is.
func (e *TransformNotFoundError) Unwrap() error { return ErrTransformNotFound }

// FaultCode returns the taxonomy classification.
func (e *TransformNotFoundError) FaultCode() Code { return CodeTransformNotFound }

// WireDetails returns the structured detail payload.
func (e *TransformNotFoundError) WireDetails() map[string]any {
	d := map[string]any{"entity": e.Entity, "label": e.Label}
	if len(e.Available) > 0 {
		d["available"] = e.Available
	}
	return d
}

// TransformCollisionError reports two transform bindings competing for the
// same (target, label) pair over overlapping version ranges. Registration
// order does not matter: either order of the two bindings fails the same way.
type TransformCollisionError struct {
	// Target is the entity type identifier the bindings attach to.
	Target string
	// Label is the contested transform label.
	Label string
	// First is the version requirement of the established binding.
	First string
	// Second is the version requirement of the rejected binding.
	Second string
}

// Error implements the error interface.
func (e *TransformCollisionError) Error() string {
	return fmt.Sprintf("transform %q on %s: requirement %q overlaps already registered %q",
		e.Label, e.Target, e.Second, e.First)
}

// Unwrap returns the sentinel for errors.Is.
func (e *TransformCollisionError) Unwrap() error { return ErrTransformCollision }

// FaultCode returns the taxonomy classification.
func (e *TransformCollisionError) FaultCode() Code { return CodeTransformCollision }

// WireDetails returns the structured detail payload.
func (e *TransformCollisionError) WireDetails() map[string]any {
	return map[string]any{
		"target": e.Target,
		"label":  e.Label,
		"first":  e.First,
		"second": e.Second,
	}
}

// DuplicateEntityError reports a repeated registration of the same entity
// type identifier and version.
type DuplicateEntityError struct {
	// ID is the entity type identifier.
	ID string
	// Version is the canonical version that was registered twice.
	Version string
}

// Error implements the error interface.
func (e *DuplicateEntityError) Error() string {
	return fmt.Sprintf("entity type %s@%s is already registered", e.ID, e.Version)
}

// Unwrap returns the sentinel for errors.Is.
func (e *DuplicateEntityError) Unwrap() error { return ErrDuplicateEntity }

// FaultCode returns the taxonomy classification.
func (e *DuplicateEntityError) FaultCode() Code { return CodeDuplicateEntity }

// WireDetails returns the structured detail payload.
func (e *DuplicateEntityError) WireDetails() map[string]any {
	return map[string]any{"id": e.ID, "version": e.Version}
}

// ConfigError reports settings that failed resolution. Every missing
// required setting is listed, not just the first one found.
type ConfigError struct {
	// Transform names the transform whose settings failed, when known.
	Transform string
	// Missing lists the required setting names without a usable value,
	// in declaration order.
	Missing []string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	subject := "settings"
	if e.Transform != "" {
		subject = fmt.Sprintf("settings for %s", e.Transform)
	}
	return fmt.Sprintf("%s: missing required values: %s", subject, strings.Join(e.Missing, ", "))
}

// Unwrap returns the sentinel for errors.Is.
func (e *ConfigError) Unwrap() error { return ErrConfigInvalid }

// FaultCode returns the taxonomy classification.
func (e *ConfigError) FaultCode() Code { return CodeConfigInvalid }

// WireDetails returns the structured detail payload.
func (e *ConfigError) WireDetails() map[string]any {
	d := map[string]any{"missing": e.Missing}
	if e.Transform != "" {
		d["transform"] = e.Transform
	}
	return d
}

// DependencyError reports external tools a transform declares but the host
// does not provide.
type DependencyError struct {
	// Transform names the transform that declared the dependencies.
	Transform string
	// Missing lists the absent tool names.
	Missing []string
}

// Error implements the error interface.
func (e *DependencyError) Error() string {
	return fmt.Sprintf("transform %s: missing dependencies: %s",
		e.Transform, strings.Join(e.Missing, ", "))
}

// Unwrap returns the sentinel for errors.Is.
func (e *DependencyError) Unwrap() error { return ErrDependencyMissing }

// FaultCode returns the taxonomy classification.
func (e *DependencyError) FaultCode() Code { return CodeDependencyMissing }

// WireDetails returns the structured detail payload.
func (e *DependencyError) WireDetails() map[string]any {
	return map[string]any{"transform": e.Transform, "missing": e.Missing}
}

// TimeoutError reports an invocation cancelled at its deadline.
type TimeoutError struct {
	// Transform names the transform that ran out of time.
	Transform string
	// Timeout is the deadline that applied.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("transform %s timed out after %s", e.Transform, e.Timeout)
}

// Unwrap returns the sentinel for errors.Is.
func (e *TimeoutError) Unwrap() error { return ErrTransformTimeout }

// FaultCode returns the taxonomy classification.
func (e *TimeoutError) FaultCode() Code { return CodeTransformTimeout }

// WireDetails returns the structured detail payload.
func (e *TimeoutError) WireDetails() map[string]any {
	return map[string]any{"transform": e.Transform, "timeout": e.Timeout.String()}
}

// Error is the generic taxonomy carrier for failures raised inside transform
// bodies: network trouble, throttling, rejected credentials, or plain
// failure. Plugins build them through the constructors in this package.
type Error struct {
	// Code is the taxonomy classification.
	Code Code
	// Message is the human-readable description.
	Message string
	// Details carries optional structured context.
	Details map[string]any
	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// FaultCode returns the taxonomy classification.
func (e *Error) FaultCode() Code { return e.Code }

// WireDetails returns the structured detail payload.
func (e *Error) WireDetails() map[string]any { return e.Details }

// New builds a generic taxonomy error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a generic taxonomy error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an existing error under a taxonomy code.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// TransformFailed wraps an arbitrary error raised by a transform body under
// the transform_failed classification, keeping already classified errors
// untouched.
func TransformFailed(err error) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != CodeUnknown {
		return err
	}
	return &Error{Code: CodeTransformFailed, Message: "transform failed", Err: err}
}
