// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"strings"
	"testing"

	"github.com/graftlabs/graft/pkg/entity"
)

func noopBody(rc *RunContext, in entity.Payload) error { return nil }

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	spec := Spec{
		Label:    "to_ip",
		Target:   "domain",
		Requires: ">=1.0, <2.0",
		Title:    "To IP Address",
		Settings: []entity.SettingSpec{
			{Name: "resolver", Kind: entity.KindText, Default: "system"},
		},
		Func: noopBody,
	}
	if err := spec.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	if spec.Name() != "domain/to_ip" {
		t.Errorf("Name() = %q, want %q", spec.Name(), "domain/to_ip")
	}
}

func TestSpecValidate_WildcardTarget(t *testing.T) {
	t.Parallel()

	spec := Spec{Label: "annotate", Target: Wildcard, Func: noopBody}
	if err := spec.Validate(); err != nil {
		t.Errorf("Validate() with wildcard target failed: %v", err)
	}
}

func TestSpecValidate_AggregatesErrors(t *testing.T) {
	t.Parallel()

	spec := Spec{
		Label:    "Bad Label",
		Target:   "Also Bad",
		Requires: "not-a-requirement",
		Settings: []entity.SettingSpec{{Name: "ok", Kind: "mystery"}},
	}

	err := spec.Validate()
	if err == nil {
		t.Fatal("Validate() succeeded, want error")
	}
	if !errors.Is(err, ErrInvalidSpec) {
		t.Errorf("error should wrap ErrInvalidSpec, got %v", err)
	}

	msg := err.Error()
	for _, fragment := range []string{"label", "target", "not-a-requirement", "missing body"} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("error message missing %q: %s", fragment, msg)
		}
	}
}

func TestNewSet(t *testing.T) {
	t.Parallel()

	set := NewSet("dns",
		Spec{Label: "to_ip", Target: "domain", Func: noopBody},
		Spec{Label: "to_mx", Target: "domain", Func: noopBody},
	)

	if set.Name != "dns" || len(set.Specs) != 2 {
		t.Errorf("set = %q with %d specs", set.Name, len(set.Specs))
	}
}
