// SPDX-License-Identifier: MPL-2.0

// Package run executes transform invocations under the streaming protocol:
// dispatch, settings resolution, lifecycle states, cancellation, and the
// item/progress/notice channels a caller consumes.
package run

// State is the lifecycle phase of one invocation.
//
// Transitions: Pending moves to Running when the body starts, Running to
// Streaming on the first emitted item, and any non-terminal state to exactly
// one of Completed, Failed, or Cancelled. Terminal states never change.
type State int32

const (
	// StatePending is the state before the body goroutine starts.
	StatePending State = iota
	// StateRunning is the state while the body executes without output yet.
	StateRunning
	// StateStreaming is the state once the first item has been delivered.
	StateStreaming
	// StateCompleted is the terminal state of a successful invocation.
	StateCompleted
	// StateFailed is the terminal state after a body error or rejected
	// dispatch.
	StateFailed
	// StateCancelled is the terminal state after caller cancellation or a
	// deadline.
	StateCancelled
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}
