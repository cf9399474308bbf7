// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"errors"
	"strings"
	"testing"
)

func TestTypeValidate(t *testing.T) {
	t.Parallel()

	typ := domainType()
	if err := typ.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}
}

func TestTypeValidate_AggregatesErrors(t *testing.T) {
	t.Parallel()

	typ := &Type{
		ID:      "Bad ID",
		Version: "latest",
		Fields: []Field{
			{Name: "ok_field", Kind: KindText},
			{Name: "ok_field", Kind: KindText},
			{Name: "broken", Kind: "mystery"},
		},
	}

	err := typ.Validate()
	if err == nil {
		t.Fatal("Validate() succeeded, want error")
	}
	if !errors.Is(err, ErrInvalidType) {
		t.Errorf("error should wrap ErrInvalidType, got %v", err)
	}

	msg := err.Error()
	for _, fragment := range []string{"Bad ID", "latest", "duplicate field", "mystery"} {
		if !strings.Contains(msg, fragment) {
			t.Errorf("error message missing %q: %s", fragment, msg)
		}
	}
}

func TestTypeKey(t *testing.T) {
	t.Parallel()

	typ := &Type{ID: "domain", Version: "1.2"}
	if got := typ.Key(); got != "domain@1.2.0" {
		t.Errorf("Key() = %q, want %q", got, "domain@1.2.0")
	}
}

func TestTypeFieldLookup(t *testing.T) {
	t.Parallel()

	typ := domainType()

	f, ok := typ.Field("ttl")
	if !ok || f.Kind != KindNumber {
		t.Errorf("Field(ttl) = %+v, %v", f, ok)
	}

	if _, ok := typ.Field("nope"); ok {
		t.Error("Field(nope) found, want miss")
	}
}

func TestBlueprint(t *testing.T) {
	t.Parallel()

	typ := domainType()
	typ.Icon = "globe"
	typ.Color = "#3A80F6"
	typ.Fields[0].Placeholder = "example.org"
	typ.Fields[0].Default = "example.org"

	bp := Blueprint(typ)

	if bp[KeyType] != "domain" {
		t.Errorf("blueprint type = %v, want domain", bp[KeyType])
	}
	if bp[KeyLabel] != "Domain" {
		t.Errorf("blueprint label = %v, want Domain", bp[KeyLabel])
	}
	if bp["icon"] != "globe" || bp["color"] != "#3A80F6" {
		t.Errorf("blueprint icon/color = %v/%v", bp["icon"], bp["color"])
	}

	fields, ok := bp["fields"].(map[string]any)
	if !ok {
		t.Fatalf("blueprint fields has type %T", bp["fields"])
	}
	if len(fields) != len(typ.Fields) {
		t.Fatalf("blueprint has %d fields, want %d", len(fields), len(typ.Fields))
	}

	domain, ok := fields["domain"].(map[string]any)
	if !ok {
		t.Fatalf("domain field record has type %T", fields["domain"])
	}
	if domain["kind"] != "text" {
		t.Errorf("domain kind = %v, want text", domain["kind"])
	}
	if domain["placeholder"] != "example.org" || domain["value"] != "example.org" {
		t.Errorf("domain record = %v", domain)
	}
	if domain["required"] != true {
		t.Errorf("domain required = %v, want true", domain["required"])
	}
}
