// SPDX-License-Identifier: MPL-2.0

package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/internal/settings"
	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/transform"
)

type fixture struct {
	reg    *registry.Registry
	store  *settings.Store
	runner *Runner
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	reg := registry.New()
	if err := reg.RegisterEntity(&entity.Type{ID: "domain", Version: "1.0.0"}); err != nil {
		t.Fatalf("RegisterEntity error = %v", err)
	}
	store := settings.NewStore(t.TempDir())
	resolver := settings.NewResolver(store, log.New(io.Discard), settings.Options{})
	return &fixture{
		reg:    reg,
		store:  store,
		runner: NewRunner(reg, resolver, log.New(io.Discard), opts),
	}
}

func (f *fixture) register(t *testing.T, spec *transform.Spec) {
	t.Helper()
	if err := f.reg.RegisterTransform(spec); err != nil {
		t.Fatalf("RegisterTransform error = %v", err)
	}
}

func domainSpec(label string, body transform.Func) *transform.Spec {
	return &transform.Spec{Label: entity.ID(label), Target: "domain", Func: body}
}

func domainRequest(label string) Request {
	return Request{
		Entity: entity.Ref{ID: "domain"},
		Label:  label,
		Input:  entity.Payload{"type": "domain", "label": "example.com"},
	}
}

func drainItems(s *Stream) []transform.Item {
	var items []transform.Item
	for item := range s.Items() {
		items = append(items, item)
	}
	return items
}

func TestRunStreamsItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("subdomains", func(rc *transform.RunContext, in entity.Payload) error {
		for _, name := range []string{"a.example.com", "b.example.com"} {
			err := rc.Emit(entity.Payload{"type": "domain", "label": name})
			if err != nil {
				return err
			}
		}
		return nil
	}))

	s := f.runner.Run(context.Background(), domainRequest("subdomains"))
	items := drainItems(s)

	if err := s.Wait(); err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	if got := s.State(); got != StateCompleted {
		t.Errorf("state = %s, want completed", got)
	}
	if len(items) != 2 {
		t.Fatalf("items delivered = %d, want 2", len(items))
	}
	if items[0].Kind != transform.ItemEntity || items[0].Entity.Label() != "a.example.com" {
		t.Errorf("first item = %+v, want entity a.example.com", items[0])
	}
	if got := s.Count(); got != 2 {
		t.Errorf("Count = %d, want 2", got)
	}
}

func TestRunNoDataEmissionsNotCounted(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("probe", func(rc *transform.RunContext, in entity.Payload) error {
		if err := rc.Emit(nil); err != nil {
			return err
		}
		return rc.Emit(entity.Payload{"type": "domain", "label": "x"})
	}))

	s := f.runner.Run(context.Background(), domainRequest("probe"))
	items := drainItems(s)

	if err := s.Wait(); err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items delivered = %d, want 2 (none + entity)", len(items))
	}
	if items[0].Kind != transform.ItemNone {
		t.Errorf("first item kind = %s, want none", items[0].Kind)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count = %d, want 1 data item", got)
	}
}

func TestRunStateProgression(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	emitted := make(chan struct{})

	f := newFixture(t, Options{})
	f.register(t, domainSpec("watch", func(rc *transform.RunContext, in entity.Payload) error {
		close(started)
		<-release
		if err := rc.Emit(entity.Payload{"type": "domain", "label": "x"}); err != nil {
			return err
		}
		close(emitted)
		return nil
	}))

	s := f.runner.Run(context.Background(), domainRequest("watch"))
	<-started
	if got := s.State(); got != StateRunning {
		t.Errorf("state before first emit = %s, want running", got)
	}
	close(release)
	<-emitted
	if got := s.State(); got != StateStreaming {
		t.Errorf("state after first emit = %s, want streaming", got)
	}
	drainItems(s)
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	if got := s.State(); got != StateCompleted {
		t.Errorf("terminal state = %s, want completed", got)
	}
}

func TestRunUnknownEntityFailsWithoutBody(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	ran := false
	f.register(t, domainSpec("noop", func(rc *transform.RunContext, in entity.Payload) error {
		ran = true
		return nil
	}))

	req := domainRequest("noop")
	req.Entity = entity.Ref{ID: "website"}
	s := f.runner.Run(context.Background(), req)

	if err := s.Wait(); !errors.Is(err, fault.ErrEntityNotFound) {
		t.Errorf("Wait error = %v, want ErrEntityNotFound", err)
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("state = %s, want failed", got)
	}
	if items := drainItems(s); len(items) != 0 {
		t.Errorf("rejected run delivered %d items, want 0", len(items))
	}
	if ran {
		t.Error("body ran despite rejected dispatch")
	}
}

func TestRunUnknownTransformFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("noop", func(rc *transform.RunContext, in entity.Payload) error {
		return nil
	}))

	s := f.runner.Run(context.Background(), domainRequest("nope"))
	if err := s.Wait(); !errors.Is(err, fault.ErrTransformNotFound) {
		t.Errorf("Wait error = %v, want ErrTransformNotFound", err)
	}
}

func TestRunMissingDependency(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{
		LookPath: func(name string) (string, error) {
			if name == "dig" {
				return "/usr/bin/dig", nil
			}
			return "", fmt.Errorf("%s not found", name)
		},
	})
	ran := false
	spec := domainSpec("lookup", func(rc *transform.RunContext, in entity.Payload) error {
		ran = true
		return nil
	})
	spec.Deps = []string{"dig", "whois", "nmap"}
	f.register(t, spec)

	s := f.runner.Run(context.Background(), domainRequest("lookup"))
	err := s.Wait()
	if !errors.Is(err, fault.ErrDependencyMissing) {
		t.Fatalf("Wait error = %v, want ErrDependencyMissing", err)
	}
	var dep *fault.DependencyError
	if !errors.As(err, &dep) {
		t.Fatalf("error %v is not a DependencyError", err)
	}
	if len(dep.Missing) != 2 || dep.Missing[0] != "whois" || dep.Missing[1] != "nmap" {
		t.Errorf("DependencyError.Missing = %v, want [whois nmap]", dep.Missing)
	}
	if ran {
		t.Error("body ran despite missing dependencies")
	}
}

func TestRunSettingsFailureRejects(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	spec := domainSpec("lookup", func(rc *transform.RunContext, in entity.Payload) error {
		return nil
	})
	spec.Settings = []entity.SettingSpec{
		{Name: "api_key", Kind: entity.KindText, Required: true},
	}
	f.register(t, spec)

	s := f.runner.Run(context.Background(), domainRequest("lookup"))
	err := s.Wait()
	if !errors.Is(err, fault.ErrConfigInvalid) {
		t.Fatalf("Wait error = %v, want ErrConfigInvalid", err)
	}
	if got := fault.CodeOf(err).ExitCode(); got != fault.ExitConfigInvalid {
		t.Errorf("exit code = %d, want %d", got, fault.ExitConfigInvalid)
	}
}

func TestRunSettingsReachBody(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	if err := f.store.SetTransform("domain", "lookup", "resolver", "1.1.1.1"); err != nil {
		t.Fatalf("SetTransform error = %v", err)
	}
	spec := domainSpec("lookup", func(rc *transform.RunContext, in entity.Payload) error {
		resolver, _ := rc.Config().GetString("resolver")
		return rc.Emit(entity.Payload{"type": "domain", "label": resolver})
	})
	spec.Settings = []entity.SettingSpec{
		{Name: "resolver", Kind: entity.KindText, Default: "9.9.9.9"},
	}
	f.register(t, spec)

	s := f.runner.Run(context.Background(), domainRequest("lookup"))
	items := drainItems(s)
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	if len(items) != 1 || items[0].Entity.Label() != "1.1.1.1" {
		t.Errorf("body saw resolver %v, want layered 1.1.1.1", items)
	}
}

func TestRunWildcardBindingUsesConcreteSettingsLayer(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	if err := f.store.SetTransform("domain", "export", "mode", "fast"); err != nil {
		t.Fatalf("SetTransform error = %v", err)
	}
	spec := &transform.Spec{
		Label:  "export",
		Target: transform.Wildcard,
		Settings: []entity.SettingSpec{
			{Name: "mode", Kind: entity.KindText, Default: "slow"},
		},
		Func: func(rc *transform.RunContext, in entity.Payload) error {
			mode, _ := rc.Config().GetString("mode")
			return rc.Emit(entity.Payload{"type": "domain", "label": mode})
		},
	}
	f.register(t, spec)

	s := f.runner.Run(context.Background(), domainRequest("export"))
	items := drainItems(s)
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait error = %v", err)
	}
	if len(items) != 1 || items[0].Entity.Label() != "fast" {
		t.Errorf("wildcard body saw mode %v, want fast from the domain layer", items)
	}
}

func TestRunPartialOutputStandsOnFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("flaky", func(rc *transform.RunContext, in entity.Payload) error {
		if err := rc.Emit(entity.Payload{"type": "domain", "label": "kept"}); err != nil {
			return err
		}
		return errors.New("upstream exploded")
	}))

	s := f.runner.Run(context.Background(), domainRequest("flaky"))
	items := drainItems(s)

	err := s.Wait()
	if err == nil {
		t.Fatal("Wait = nil, want failure")
	}
	if got := fault.CodeOf(err); got != fault.CodeTransformFailed {
		t.Errorf("CodeOf = %q, want %q", got, fault.CodeTransformFailed)
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("state = %s, want failed", got)
	}
	if len(items) != 1 || items[0].Entity.Label() != "kept" {
		t.Errorf("partial items = %v, want the one delivered before the failure", items)
	}
	if got := s.Count(); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestRunClassifiedBodyErrorKeepsItsCode(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("throttled", func(rc *transform.RunContext, in entity.Payload) error {
		return fault.New(fault.CodeRateLimited, "slow down")
	}))

	s := f.runner.Run(context.Background(), domainRequest("throttled"))
	err := s.Wait()
	if got := fault.CodeOf(err); got != fault.CodeRateLimited {
		t.Errorf("CodeOf = %q, want %q", got, fault.CodeRateLimited)
	}
}

func TestRunPanicRecovered(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("boom", func(rc *transform.RunContext, in entity.Payload) error {
		panic("nil map write")
	}))

	s := f.runner.Run(context.Background(), domainRequest("boom"))
	err := s.Wait()
	if err == nil {
		t.Fatal("Wait = nil, want recovered panic")
	}
	if got := fault.CodeOf(err); got != fault.CodeTransformFailed {
		t.Errorf("CodeOf = %q, want %q", got, fault.CodeTransformFailed)
	}
	if got := s.State(); got != StateFailed {
		t.Errorf("state = %s, want failed", got)
	}
}

func TestRunTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("slow", func(rc *transform.RunContext, in entity.Payload) error {
		<-rc.Context().Done()
		return rc.Context().Err()
	}))

	req := domainRequest("slow")
	req.Timeout = 50 * time.Millisecond
	s := f.runner.Run(context.Background(), req)

	err := s.Wait()
	if !errors.Is(err, fault.ErrTransformTimeout) {
		t.Fatalf("Wait error = %v, want ErrTransformTimeout", err)
	}
	var te *fault.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error %v is not a TimeoutError", err)
	}
	if te.Timeout != req.Timeout {
		t.Errorf("TimeoutError.Timeout = %s, want %s", te.Timeout, req.Timeout)
	}
	if got := s.State(); got != StateCancelled {
		t.Errorf("state = %s, want cancelled", got)
	}
}

func TestRunDefaultTimeout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{DefaultTimeout: 50 * time.Millisecond})
	f.register(t, domainSpec("slow", func(rc *transform.RunContext, in entity.Payload) error {
		<-rc.Context().Done()
		return rc.Context().Err()
	}))

	s := f.runner.Run(context.Background(), domainRequest("slow"))
	err := s.Wait()
	var te *fault.TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("Wait error = %v, want TimeoutError", err)
	}
	if te.Timeout != 50*time.Millisecond {
		t.Errorf("TimeoutError.Timeout = %s, want the runner default 50ms", te.Timeout)
	}
}

func TestRunCancellation(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	f := newFixture(t, Options{})
	f.register(t, domainSpec("patient", func(rc *transform.RunContext, in entity.Payload) error {
		close(started)
		<-rc.Context().Done()
		return rc.Context().Err()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	s := f.runner.Run(ctx, domainRequest("patient"))
	<-started
	cancel()

	if err := s.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("Wait error = %v, want context.Canceled", err)
	}
	if got := s.State(); got != StateCancelled {
		t.Errorf("state = %s, want cancelled", got)
	}
}

func TestRunProgressAndNotices(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options{})
	f.register(t, domainSpec("verbose", func(rc *transform.RunContext, in entity.Payload) error {
		rc.Progress("resolving", 10, "dns")
		rc.Notify(transform.NoticeWarning, "partial zone refused")
		return rc.Emit(entity.Payload{"type": "domain", "label": "x"})
	}))

	s := f.runner.Run(context.Background(), domainRequest("verbose"))
	drainItems(s)
	if err := s.Wait(); err != nil {
		t.Fatalf("Wait error = %v", err)
	}

	var progress []transform.ProgressEvent
	for ev := range s.Progress() {
		progress = append(progress, ev)
	}
	if len(progress) != 1 || progress[0].Message != "resolving" || progress[0].Stage != "dns" {
		t.Errorf("progress = %+v, want one resolving/dns event", progress)
	}

	var notices []transform.Notice
	for n := range s.Notices() {
		notices = append(notices, n)
	}
	if len(notices) != 1 || notices[0].Level != transform.NoticeWarning {
		t.Errorf("notices = %+v, want one warning", notices)
	}
}
