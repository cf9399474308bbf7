// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
)

func TestScriptFunc_EmitsJSONLines(t *testing.T) {
	t.Parallel()

	body, err := ScriptFunc(`
echo '{"type": "ip_address", "label": "203.0.113.7"}'
echo ""
echo '{"type": "ip_address", "label": "203.0.113.8"}'
`)
	if err != nil {
		t.Fatalf("ScriptFunc failed: %v", err)
	}

	sink := &captureSink{}
	rc := newTestContext(sink, nil)

	if err := body(rc, entity.Payload{"type": "domain"}); err != nil {
		t.Fatalf("body failed: %v", err)
	}
	if len(sink.items) != 2 {
		t.Fatalf("emitted %d items, want 2", len(sink.items))
	}
	if sink.items[0].Entity.Label() != "203.0.113.7" {
		t.Errorf("items[0] label = %q", sink.items[0].Entity.Label())
	}
	if sink.items[1].Entity.Label() != "203.0.113.8" {
		t.Errorf("items[1] label = %q", sink.items[1].Entity.Label())
	}
}

func TestScriptFunc_SettingsAndInputEnv(t *testing.T) {
	t.Parallel()

	body, err := ScriptFunc(`printf '{"type": "note", "content": "%s"}\n' "$GRAFT_SETTING_API_KEY"`)
	if err != nil {
		t.Fatalf("ScriptFunc failed: %v", err)
	}

	sink := &captureSink{}
	rc := newTestContext(sink, Config{"api_key": "s3cret"})

	if err := body(rc, entity.Payload{"type": "domain"}); err != nil {
		t.Fatalf("body failed: %v", err)
	}
	if len(sink.items) != 1 {
		t.Fatalf("emitted %d items, want 1", len(sink.items))
	}
	if got, _ := sink.items[0].Entity.GetString("content"); got != "s3cret" {
		t.Errorf("content = %q, want the setting value", got)
	}
}

func TestScriptFunc_InputRoundTrip(t *testing.T) {
	t.Parallel()

	body, err := ScriptFunc(`echo "$GRAFT_INPUT"`)
	if err != nil {
		t.Fatalf("ScriptFunc failed: %v", err)
	}

	sink := &captureSink{}
	rc := newTestContext(sink, nil)

	input := entity.Payload{"type": "domain", "domain": "example.org"}
	if err := body(rc, input); err != nil {
		t.Fatalf("body failed: %v", err)
	}
	if len(sink.items) != 1 {
		t.Fatalf("emitted %d items, want 1", len(sink.items))
	}
	if got, _ := sink.items[0].Entity.GetString("domain"); got != "example.org" {
		t.Errorf("domain = %q, want round-tripped input", got)
	}
}

func TestScriptFunc_NonZeroExit(t *testing.T) {
	t.Parallel()

	body, err := ScriptFunc(`echo "partial diagnostics" >&2; exit 3`)
	if err != nil {
		t.Fatalf("ScriptFunc failed: %v", err)
	}

	runErr := body(newTestContext(&captureSink{}, nil), entity.Payload{"type": "domain"})
	if runErr == nil {
		t.Fatal("body succeeded, want error")
	}
	if fault.CodeOf(runErr) != fault.CodeTransformFailed {
		t.Errorf("CodeOf = %q, want %q", fault.CodeOf(runErr), fault.CodeTransformFailed)
	}
}

func TestScriptFunc_MalformedOutput(t *testing.T) {
	t.Parallel()

	body, err := ScriptFunc(`echo "this is not json"`)
	if err != nil {
		t.Fatalf("ScriptFunc failed: %v", err)
	}

	runErr := body(newTestContext(&captureSink{}, nil), entity.Payload{"type": "domain"})
	if runErr == nil {
		t.Fatal("body succeeded, want error")
	}
	if fault.CodeOf(runErr) != fault.CodeTransformFailed {
		t.Errorf("CodeOf = %q, want %q", fault.CodeOf(runErr), fault.CodeTransformFailed)
	}
}

func TestScriptFunc_SyntaxErrorCaughtUpfront(t *testing.T) {
	t.Parallel()

	if _, err := ScriptFunc(`if then; fi (`); err == nil {
		t.Fatal("ScriptFunc with broken syntax succeeded, want error")
	}
}

func TestScriptFunc_Cancellation(t *testing.T) {
	t.Parallel()

	body, err := ScriptFunc(`while true; do :; done`)
	if err != nil {
		t.Fatalf("ScriptFunc failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rc := NewRunContext(ctx, nil, log.New(io.Discard), &captureSink{})

	runErr := body(rc, entity.Payload{"type": "domain"})
	if !errors.Is(runErr, context.Canceled) {
		t.Fatalf("body error = %v, want context.Canceled", runErr)
	}
}
