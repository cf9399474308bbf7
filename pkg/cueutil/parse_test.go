// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"
)

const descriptorSchema = `
#Descriptor: {
	id:      =~"^[a-z][a-z0-9_]*$"
	version: string
	label?:  string
	fields?: [...{
		name: =~"^[a-z][a-z0-9_]*$"
		kind: "text" | "number" | "boolean"
	}]
}
`

type descriptor struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Label   string `json:"label,omitempty"`
	Fields  []struct {
		Name string `json:"name"`
		Kind string `json:"kind"`
	} `json:"fields,omitempty"`
}

func TestParseAndDecodeCUE(t *testing.T) {
	t.Parallel()

	data := []byte(`
id:      "domain"
version: "1.0.0"
label:   "Domain"
fields: [{name: "registrar", kind: "text"}]
`)
	result, err := ParseAndDecode[descriptor]([]byte(descriptorSchema), data, "#Descriptor")
	if err != nil {
		t.Fatalf("ParseAndDecode error = %v", err)
	}

	got := result.Value
	if got.ID != "domain" || got.Version != "1.0.0" {
		t.Errorf("decoded = %+v, want domain 1.0.0", got)
	}
	if len(got.Fields) != 1 || got.Fields[0].Kind != "text" {
		t.Errorf("fields = %+v, want one text field", got.Fields)
	}
}

func TestParseAndDecodeJSON(t *testing.T) {
	t.Parallel()

	data := []byte(`{"id": "ip_address", "version": "2.1.0"}`)
	result, err := ParseAndDecode[descriptor]([]byte(descriptorSchema), data, "#Descriptor",
		WithConcrete(false))
	if err != nil {
		t.Fatalf("ParseAndDecode error = %v", err)
	}
	if result.Value.ID != "ip_address" {
		t.Errorf("id = %q, want ip_address", result.Value.ID)
	}
}

func TestParseAndDecodeRejectsBadValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data string
	}{
		{"uppercase id", `{"id": "Domain", "version": "1.0.0"}`},
		{"unknown kind", `{"id": "domain", "version": "1.0.0", "fields": [{"name": "x", "kind": "blob"}]}`},
		{"version is not a string", `{"id": "domain", "version": 1}`},
		{"missing id", `{"version": "1.0.0"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseAndDecode[descriptor]([]byte(descriptorSchema), []byte(tt.data), "#Descriptor")
			if err == nil {
				t.Error("invalid descriptor was accepted")
			}
		})
	}
}

func TestParseAndDecodeFilenameInErrors(t *testing.T) {
	t.Parallel()

	_, err := ParseAndDecode[descriptor]([]byte(descriptorSchema), []byte(`{"id": 7}`), "#Descriptor",
		WithFilename("bad.json"))
	if err == nil {
		t.Fatal("invalid descriptor was accepted")
	}
	if !strings.Contains(err.Error(), "bad.json") {
		t.Errorf("err = %v, want it to name bad.json", err)
	}
}

func TestParseAndDecodeSizeLimit(t *testing.T) {
	t.Parallel()

	big := []byte(`{"id": "domain", "version": "1.0.0", "label": "` + strings.Repeat("x", 64) + `"}`)
	_, err := ParseAndDecode[descriptor]([]byte(descriptorSchema), big, "#Descriptor",
		WithMaxFileSize(16))
	if err == nil {
		t.Fatal("oversized file was accepted")
	}
	if !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("err = %v, want a size limit failure", err)
	}
}
