// SPDX-License-Identifier: MPL-2.0

// Package wire implements the delimiter-framed stdout protocol embedding
// callers parse: one terminal result or error block per stream, with
// progress lines interleaved before it.
package wire

import (
	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/transform"
)

// Stream delimiters. Every block delimiter stands alone on its own line;
// the progress prefix starts a single self-contained line.
const (
	// JSONStart opens the terminal result block.
	JSONStart = "---GRAFT_JSON_START---"
	// JSONEnd closes the terminal result block.
	JSONEnd = "---GRAFT_JSON_END---"
	// ErrorStart opens the terminal error block.
	ErrorStart = "---GRAFT_ERROR_START---"
	// ErrorEnd closes the terminal error block.
	ErrorEnd = "---GRAFT_ERROR_END---"
	// ProgressPrefix starts a progress line; the rest of the line is one
	// JSON document.
	ProgressPrefix = "---GRAFT_PROGRESS---"
)

// MaxLine bounds a single protocol line, aligned with the IPC frame cap.
const MaxLine = 16 << 20

// Result is the payload of the terminal result block.
type Result struct {
	// Data holds the streamed output items, in emission order.
	Data []transform.Item `json:"data"`
	// Notices holds the user-facing notices collected during the run.
	Notices []transform.Notice `json:"notices"`
}

// EventKind tags one parsed stream event.
type EventKind string

const (
	// EventProgress is an interleaved progress update.
	EventProgress EventKind = "progress"
	// EventResult is the terminal result block.
	EventResult EventKind = "result"
	// EventError is the terminal error block.
	EventError EventKind = "error"
)

// Event is one parsed occurrence on a wire stream. Exactly one of the
// payload fields matching Kind is set.
type Event struct {
	Kind     EventKind
	Progress *transform.ProgressEvent
	Result   *Result
	Err      *fault.Wire
}
