// SPDX-License-Identifier: MPL-2.0

package run

import (
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/internal/settings"
	"github.com/graftlabs/graft/internal/telemetry"
	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/transform"
)

// DefaultBuffer is the default capacity of each stream channel.
const DefaultBuffer = 64

// Request describes one invocation.
type Request struct {
	// Entity references the typed entity to transform, bare or pinned.
	Entity entity.Ref
	// Label selects the transform bound to the entity's type.
	Label string
	// Input is the entity payload handed to the transform body.
	Input entity.Payload
	// Overrides are runtime setting overrides, the highest resolution
	// layer.
	Overrides map[string]any
	// Timeout bounds the invocation. Zero falls back to the runner
	// default; a negative value disables the deadline for this request.
	Timeout time.Duration
}

// Options configure a Runner.
type Options struct {
	// DefaultTimeout bounds invocations that do not carry their own.
	// Zero means no deadline.
	DefaultTimeout time.Duration
	// Buffer is the per-stream channel capacity. Zero uses DefaultBuffer.
	Buffer int
	// Metrics receives invocation counts and durations. Nil disables.
	Metrics *telemetry.Metrics
	// LookPath resolves declared tool dependencies. Nil uses
	// exec.LookPath.
	LookPath func(string) (string, error)
}

// Runner dispatches transform invocations against a registry and streams
// their output. Invocations are independent; a Runner is safe for
// concurrent use.
type Runner struct {
	reg      *registry.Registry
	resolver *settings.Resolver
	logger   *log.Logger
	opts     Options
}

// NewRunner assembles a runner.
func NewRunner(reg *registry.Registry, resolver *settings.Resolver, logger *log.Logger, opts Options) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = DefaultBuffer
	}
	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}
	return &Runner{reg: reg, resolver: resolver, logger: logger, opts: opts}
}

// Run dispatches one invocation and returns its stream. Dispatch failures
// (unknown entity or transform, missing dependencies, unresolvable
// settings) surface on the stream as well: it comes back already Failed
// and Wait yields the error, without the body ever starting.
func (r *Runner) Run(ctx context.Context, req Request) *Stream {
	s := newStream(r.opts.Buffer)
	start := time.Now()

	binding, err := r.reg.Transform(req.Entity, req.Label)
	if err != nil {
		return r.reject(s, start, err)
	}
	spec := binding.Spec

	if missing := r.missingDeps(spec); len(missing) > 0 {
		return r.reject(s, start, &fault.DependencyError{Transform: spec.Name(), Missing: missing})
	}

	et, err := r.reg.Entity(req.Entity)
	if err != nil {
		return r.reject(s, start, err)
	}

	// A wildcard binding stores its settings per concrete target type, so
	// the layer follows the entity actually being transformed.
	layerTarget := spec.Target
	if binding.Wildcard() {
		layerTarget = et.ID
	}
	cfg, err := r.resolver.Resolve(et.Settings, spec.Settings, layerTarget, spec.Label.String(), req.Overrides)
	if err != nil {
		return r.reject(s, start, err)
	}

	timeout := req.Timeout
	if timeout == 0 {
		timeout = r.opts.DefaultTimeout
	}
	runCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	go r.supervise(runCtx, cancel, s, spec, et, cfg, req.Input, start, timeout)
	return s
}

// reject finishes a stream before its body ever started.
func (r *Runner) reject(s *Stream, start time.Time, err error) *Stream {
	s.finish(StateFailed, err)
	r.record(s, start)
	r.logger.Debug("invocation rejected", "error", err)
	return s
}

// supervise owns one invocation's lifecycle: it runs the body on its own
// goroutine, waits for it to return, and derives the terminal state. The
// body must honor its context; emits abort once the run is cancelled, so a
// well-behaved body returns promptly.
func (r *Runner) supervise(ctx context.Context, cancel context.CancelFunc, s *Stream, spec *transform.Spec, et *entity.Type, cfg transform.Config, input entity.Payload, start time.Time, timeout time.Duration) {
	defer cancel()

	logger := r.logger.With("transform", spec.Name(), "entity", et.Key())
	sink := &streamSink{ctx: ctx, stream: s, metrics: r.opts.Metrics}
	rc := transform.NewRunContext(ctx, cfg, logger, sink)

	s.transition(StatePending, StateRunning)

	bodyErr := make(chan error, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				bodyErr <- fault.Newf(fault.CodeTransformFailed, "transform %s panicked: %v", spec.Name(), rec)
			}
		}()
		bodyErr <- spec.Func(rc, input)
	}()
	err := <-bodyErr

	ctxErr := ctx.Err()
	switch {
	case err == nil:
		s.finish(StateCompleted, nil)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctxErr, context.DeadlineExceeded):
		s.finish(StateCancelled, &fault.TimeoutError{Transform: spec.Name(), Timeout: timeout})
	case errors.Is(err, context.Canceled) || errors.Is(ctxErr, context.Canceled):
		s.finish(StateCancelled, context.Canceled)
	default:
		s.finish(StateFailed, fault.TransformFailed(err))
	}

	r.record(s, start)
	logger.Debug("invocation finished",
		"state", s.State(), "items", s.Count(), "duration", time.Since(start))
}

// missingDeps returns the declared tool dependencies the host cannot
// resolve, in declaration order.
func (r *Runner) missingDeps(spec *transform.Spec) []string {
	var missing []string
	for _, dep := range spec.Deps {
		if _, err := r.opts.LookPath(dep); err != nil {
			missing = append(missing, dep)
		}
	}
	return missing
}

func (r *Runner) record(s *Stream, start time.Time) {
	r.opts.Metrics.RecordInvocation(s.State().String(), time.Since(start).Seconds())
}

// streamSink adapts a Stream to the transform.Sink interface. It is driven
// only by the body goroutine; the supervisor closes the channels strictly
// after the body returns.
type streamSink struct {
	ctx     context.Context
	stream  *Stream
	metrics *telemetry.Metrics
}

// EmitItem delivers one item, blocking while the consumer is behind and
// aborting once the run is cancelled. The first data item moves the
// invocation from Running to Streaming.
func (k *streamSink) EmitItem(item transform.Item) error {
	if err := k.ctx.Err(); err != nil {
		return err
	}
	select {
	case k.stream.items <- item:
	case <-k.ctx.Done():
		return k.ctx.Err()
	}
	if item.Kind != transform.ItemNone {
		k.stream.count.Add(1)
		k.metrics.RecordItems(1)
	}
	k.stream.transition(StateRunning, StateStreaming)
	return nil
}

// EmitProgress delivers a progress update without ever blocking the body.
// When the consumer falls behind, the oldest pending update gives way.
func (k *streamSink) EmitProgress(ev transform.ProgressEvent) {
	if k.ctx.Err() != nil {
		return
	}
	select {
	case k.stream.progress <- ev:
		return
	default:
	}
	select {
	case <-k.stream.progress:
	default:
	}
	select {
	case k.stream.progress <- ev:
	default:
	}
}

// EmitNotice delivers a user-facing notice, aborting once the run is
// cancelled.
func (k *streamSink) EmitNotice(n transform.Notice) {
	select {
	case k.stream.notices <- n:
	case <-k.ctx.Done():
	}
}
