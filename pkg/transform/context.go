// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"

	"github.com/charmbracelet/log"
)

// NoticeLevel grades user-facing notices emitted alongside results.
type NoticeLevel string

const (
	// NoticeInfo is a neutral informational message.
	NoticeInfo NoticeLevel = "info"
	// NoticeWarning flags a non-fatal problem the user should see.
	NoticeWarning NoticeLevel = "warning"
	// NoticeError flags a problem that degraded the result without
	// failing the transform.
	NoticeError NoticeLevel = "error"
)

// Notice is a user-facing message delivered on its own channel, never mixed
// into entity payloads.
type Notice struct {
	Level   NoticeLevel `json:"level"`
	Message string      `json:"message"`
}

// ProgressEvent is one update on the progress side channel. Drivers deliver
// progress no later than the next output item.
type ProgressEvent struct {
	// Message describes the current activity.
	Message string `json:"message"`
	// Percent is the completion estimate in 0..100, or negative when the
	// transform cannot estimate.
	Percent float64 `json:"percent"`
	// Stage names the current phase, empty outside staged transforms.
	Stage string `json:"stage,omitempty"`
}

// Sink receives what a running transform emits. The runner implements it;
// tests substitute their own.
type Sink interface {
	// EmitItem delivers one normalized output item. It blocks while the
	// consumer is behind and returns an error once the run is cancelled.
	EmitItem(Item) error
	// EmitProgress delivers a progress update. It never blocks the body.
	EmitProgress(ProgressEvent)
	// EmitNotice delivers a user-facing notice.
	EmitNotice(Notice)
}

// RunContext is what a transform body receives alongside the input payload:
// the cancellation context, the resolved settings, a logger, and the emit
// methods that stream output.
type RunContext struct {
	ctx    context.Context
	cfg    Config
	logger *log.Logger
	sink   Sink
}

// NewRunContext assembles a run context. The runner is the only production
// caller; tests build them directly around a test sink.
func NewRunContext(ctx context.Context, cfg Config, logger *log.Logger, sink Sink) *RunContext {
	return &RunContext{ctx: ctx, cfg: cfg, logger: logger, sink: sink}
}

// Context returns the cancellation context of the invocation. Bodies doing
// network or long-running work must honor it.
func (rc *RunContext) Context() context.Context {
	return rc.ctx
}

// Config returns the resolved settings view.
func (rc *RunContext) Config() Config {
	return rc.cfg
}

// Logger returns the invocation-scoped logger.
func (rc *RunContext) Logger() *log.Logger {
	return rc.logger
}

// Emit normalizes one value and streams the resulting items. The value may
// be an entity payload, a plain map with a type key, a Node, a subgraph, or
// a slice of those. Returns an error once the run is cancelled; bodies must
// return it unchanged.
func (rc *RunContext) Emit(v any) error {
	items, err := Normalize(v)
	if err != nil {
		return err
	}
	for _, item := range items {
		if err := rc.sink.EmitItem(item); err != nil {
			return err
		}
	}
	return nil
}

// Progress reports an update on the progress side channel. Percent is the
// completion estimate in 0..100; pass a negative value when the transform
// cannot estimate. Stage may be empty.
func (rc *RunContext) Progress(message string, percent float64, stage string) {
	rc.sink.EmitProgress(ProgressEvent{Message: message, Percent: percent, Stage: stage})
}

// Notify sends a user-facing notice on the message channel.
func (rc *RunContext) Notify(level NoticeLevel, message string) {
	rc.sink.EmitNotice(Notice{Level: level, Message: message})
}
