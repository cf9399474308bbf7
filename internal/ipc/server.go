// SPDX-License-Identifier: MPL-2.0

package ipc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/internal/run"
	"github.com/graftlabs/graft/internal/settings"
	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
)

// Server serves the worker channel for one host connection. Requests are
// handled concurrently; frame writes are serialized.
type Server struct {
	reg    *registry.Registry
	runner *run.Runner
	store  *settings.Store
	logger *log.Logger

	wmu sync.Mutex
	out io.Writer

	mu       sync.Mutex
	inflight map[uint64]context.CancelFunc
}

// NewServer builds a server over the given catalog, runner and settings
// store. A nil logger falls back to the package default.
func NewServer(reg *registry.Registry, runner *run.Runner, store *settings.Store, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		reg:      reg,
		runner:   runner,
		store:    store,
		logger:   logger,
		inflight: make(map[uint64]context.CancelFunc),
	}
}

// Serve reads request frames from r until the stream ends and writes
// responses and events to w. It returns nil on a clean EOF. Cancelling ctx
// aborts in-flight runs; hosts that cancel should also close r to unblock
// the read loop.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	s.out = w

	var wg sync.WaitGroup
	defer wg.Wait()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := ReadMessage(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return err
			}
			s.logger.Debug("dropping unreadable frame", "err", err)
			continue
		}
		if msg.Type != TypeRequest {
			s.logger.Debug("dropping unexpected frame", "type", msg.Type, "id", msg.ID)
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handle(ctx, msg)
		}()
	}
}

func (s *Server) handle(ctx context.Context, msg *Message) {
	switch msg.Cmd {
	case CmdEntities:
		s.respond(msg.ID, s.reg.Entities())
	case CmdTransforms:
		s.handleTransforms(msg)
	case CmdBlueprints:
		s.handleBlueprints(msg)
	case CmdSettings:
		s.handleSettings(msg)
	case CmdRun:
		s.handleRun(ctx, msg)
	case CmdCancel:
		s.handleCancel(msg)
	default:
		s.fail(msg.ID, fault.Newf(fault.CodeUnknown, "unknown command %q", msg.Cmd))
	}
}

func (s *Server) handleTransforms(msg *Message) {
	var args ListRequest
	if err := unmarshalArgs(msg.Payload, &args); err != nil {
		s.fail(msg.ID, err)
		return
	}
	ref, err := entity.ParseRef(args.Ref)
	if err != nil {
		s.fail(msg.ID, err)
		return
	}
	bindings, err := s.reg.Transforms(ref)
	if err != nil {
		s.fail(msg.ID, err)
		return
	}
	rows := make([]TransformInfo, len(bindings))
	for i, b := range bindings {
		rows[i] = NewTransformInfo(b)
	}
	s.respond(msg.ID, rows)
}

func (s *Server) handleBlueprints(msg *Message) {
	var args ListRequest
	if err := unmarshalArgs(msg.Payload, &args); err != nil {
		s.fail(msg.ID, err)
		return
	}

	if args.Ref != "" {
		ref, err := entity.ParseRef(args.Ref)
		if err != nil {
			s.fail(msg.ID, err)
			return
		}
		t, err := s.reg.Entity(ref)
		if err != nil {
			s.fail(msg.ID, err)
			return
		}
		s.respond(msg.ID, entity.Blueprint(t))
		return
	}

	types := s.reg.Entities()
	blueprints := make(map[string]map[string]any, len(types))
	for _, t := range types {
		blueprints[t.Key()] = entity.Blueprint(t)
	}
	s.respond(msg.ID, blueprints)
}

func (s *Server) handleSettings(msg *Message) {
	var args SettingsRequest
	if err := unmarshalArgs(msg.Payload, &args); err != nil {
		s.fail(msg.ID, err)
		return
	}
	info, err := s.describeSettings(args)
	if err != nil {
		s.fail(msg.ID, err)
		return
	}
	s.respond(msg.ID, info)
}

func (s *Server) describeSettings(args SettingsRequest) (*SettingsInfo, error) {
	ref, err := entity.ParseRef(args.Ref)
	if err != nil {
		return nil, err
	}
	t, err := s.reg.Entity(ref)
	if err != nil {
		return nil, err
	}
	binding, err := s.reg.Transform(ref, args.Label)
	if err != nil {
		return nil, err
	}

	// Wildcard bindings keep per-entity layers, matching the runner.
	target := binding.Spec.Target
	if binding.Wildcard() {
		target = t.ID
	}
	label := binding.Spec.Label.String()

	global, err := s.store.Global()
	if err != nil {
		return nil, err
	}
	layer, err := s.store.Transform(target, label)
	if err != nil {
		return nil, err
	}

	decls := settings.Declared(t.Settings, binding.Spec.Settings)
	info := &SettingsInfo{
		Transform: string(target) + "/" + label,
		Specs:     decls,
		Global:    make(map[string]any),
		Layer:     make(map[string]any),
		Path:      s.store.TransformPath(target, label),
	}
	for _, d := range decls {
		key := d.Name.String()
		if d.Global {
			if v, ok := global[key]; ok {
				info.Global[key] = redact(&d, v)
			}
		}
		if v, ok := layer[key]; ok {
			info.Layer[key] = redact(&d, v)
		}
	}
	return info, nil
}

func redact(spec *entity.SettingSpec, v any) any {
	if spec.Secret {
		return Redacted
	}
	return v
}

func (s *Server) handleRun(ctx context.Context, msg *Message) {
	var args RunRequest
	if err := unmarshalArgs(msg.Payload, &args); err != nil {
		s.fail(msg.ID, err)
		return
	}
	ref, err := entity.ParseRef(args.Entity)
	if err != nil {
		s.fail(msg.ID, err)
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.track(msg.ID, cancel)
	defer s.untrack(msg.ID)

	stream := s.runner.Run(ctx, run.Request{
		Entity:    ref,
		Label:     args.Label,
		Input:     args.Input,
		Overrides: args.Overrides,
		Timeout:   time.Duration(args.TimeoutMS) * time.Millisecond,
	})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for item := range stream.Items() {
			s.event(msg.ID, EventItem, item)
		}
	}()
	go func() {
		defer wg.Done()
		for ev := range stream.Progress() {
			s.event(msg.ID, EventProgress, ev)
		}
	}()
	go func() {
		defer wg.Done()
		for n := range stream.Notices() {
			s.event(msg.ID, EventNotice, n)
		}
	}()
	wg.Wait()

	if err := stream.Wait(); err != nil {
		s.fail(msg.ID, err)
		return
	}
	s.respond(msg.ID, Done{Count: stream.Count()})
}

func (s *Server) handleCancel(msg *Message) {
	var args CancelRequest
	if err := unmarshalArgs(msg.Payload, &args); err != nil {
		s.fail(msg.ID, err)
		return
	}
	s.mu.Lock()
	cancel, ok := s.inflight[args.ID]
	s.mu.Unlock()
	if ok {
		cancel()
	}
	s.respond(msg.ID, CancelResult{Cancelled: ok})
}

func (s *Server) track(id uint64, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight[id] = cancel
}

func (s *Server) untrack(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}

func (s *Server) respond(id uint64, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.fail(id, err)
		return
	}
	s.send(&Message{ID: id, Type: TypeResponse, OK: true, Payload: raw})
}

func (s *Server) fail(id uint64, err error) {
	w := fault.ToWire(err)
	s.send(&Message{ID: id, Type: TypeResponse, Err: &w})
}

func (s *Server) event(id uint64, name EventName, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshaling stream event", "event", name, "err", err)
		return
	}
	s.send(&Message{ID: id, Type: TypeEvent, Event: name, OK: true, Payload: raw})
}

func (s *Server) send(msg *Message) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := WriteMessage(s.out, msg); err != nil {
		s.logger.Debug("writing frame", "type", msg.Type, "id", msg.ID, "err", err)
	}
}

func unmarshalArgs(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fault.Wrap(fault.CodeUnknown, "invalid command payload", err)
	}
	return nil
}
