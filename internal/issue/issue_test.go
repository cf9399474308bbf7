// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"

	"github.com/graftlabs/graft/pkg/fault"
)

func TestGet(t *testing.T) {
	tests := []struct {
		code     fault.Code
		wantNil  bool
		contains string
	}{
		{fault.CodeEntityNotFound, false, "Entity type not found"},
		{fault.CodeTransformNotFound, false, "Transform not found"},
		{fault.CodeTransformCollision, false, "Transform collision"},
		{fault.CodeDuplicateEntity, false, "Duplicate entity type"},
		{fault.CodeConfigInvalid, false, "Invalid settings"},
		{fault.CodeDependencyMissing, false, "Missing dependency"},
		{fault.CodeTransformTimeout, false, "Transform timed out"},
		{fault.CodeTransformFailed, false, "Transform failed"},
		{fault.CodeNetworkError, false, "Network error"},
		{fault.CodeRateLimited, false, "Rate limited"},
		{fault.CodeAuthFailed, false, "Authentication failed"},
		{fault.CodeUnknown, true, ""},
		{fault.Code("no_such_code"), true, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			got := Get(tt.code)

			if tt.wantNil {
				if got != nil {
					t.Errorf("Get(%q) should return nil", tt.code)
				}
				return
			}

			if got == nil {
				t.Fatalf("Get(%q) returned nil", tt.code)
			}
			if got.Code() != tt.code {
				t.Errorf("Get(%q).Code() = %q", tt.code, got.Code())
			}
			if !strings.Contains(string(got.MarkdownMsg()), tt.contains) {
				t.Errorf("Get(%q).MarkdownMsg() should contain %q", tt.code, tt.contains)
			}
		})
	}
}

func TestValues(t *testing.T) {
	got := Values()

	if len(got) != len(issues) {
		t.Fatalf("Values() returned %d issues, want %d", len(got), len(issues))
	}

	for i := 1; i < len(got); i++ {
		if got[i-1].Code() >= got[i].Code() {
			t.Errorf("Values() not sorted: %q before %q", got[i-1].Code(), got[i].Code())
		}
	}
}

func TestEveryCatalogedCodeIsInTaxonomy(t *testing.T) {
	for code := range issues {
		if !code.IsValid() {
			t.Errorf("catalog entry %q is not a valid fault code", code)
		}
	}
}

func TestIssue_Render(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	got := Get(fault.CodeEntityNotFound)
	if got == nil {
		t.Fatal("Get(CodeEntityNotFound) returned nil")
	}

	rendered, err := got.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	if !strings.Contains(rendered, "graft entity list") {
		t.Error("Render() output should mention 'graft entity list'")
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		code:     fault.Code("test_code"),
		mdMsg:    "# Test Issue\n\nThis is a test.",
		docLinks: []HttpLink{"https://docs.example.com"},
		extLinks: []HttpLink{"https://external.example.com"},
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	if !strings.Contains(rendered, "See also") {
		t.Error("Render() with links should contain 'See also'")
	}
}

func TestIssue_Render_NoLinks(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	testIssue := &Issue{
		code:  fault.Code("test_code"),
		mdMsg: "# Test Issue\n\nNo links here.",
	}

	rendered, err := testIssue.Render("")
	if err != nil {
		t.Fatalf("Render() returned error: %v", err)
	}

	if strings.Contains(rendered, "See also") {
		t.Error("Render() without links should not contain 'See also'")
	}
}

func TestAllIssuesHaveContent(t *testing.T) {
	for _, iss := range Values() {
		if iss.MarkdownMsg() == "" {
			t.Errorf("issue %q has empty MarkdownMsg", iss.Code())
		}
	}
}

func TestAllIssuesAreRenderable(t *testing.T) {
	originalRender := render
	defer func() { render = originalRender }()

	render = func(in string, stylePath string) (string, error) {
		return in, nil
	}

	for _, iss := range Values() {
		rendered, err := iss.Render("")
		if err != nil {
			t.Errorf("issue %q failed to render: %v", iss.Code(), err)
		}
		if rendered == "" {
			t.Errorf("issue %q rendered to empty string", iss.Code())
		}
	}
}
