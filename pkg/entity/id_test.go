// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"errors"
	"testing"
)

func TestNormalizeID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  ID
	}{
		{"IP Address", "ip_address"},
		{"ipAddress", "ip_address"},
		{"DNSRecord", "dnsrecord"},
		{"already_snake", "already_snake"},
		{"To   Snake-Case", "to_snake_case"},
		{"website.url", "website_url"},
		{"  padded  ", "padded"},
		{"Whois Lookup v2", "whois_lookup_v2"},
		{"MIXED_Case_ID", "mixed_case_id"},
	}

	for _, tt := range tests {
		if got := NormalizeID(tt.input); got != tt.want {
			t.Errorf("NormalizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestIDValidate(t *testing.T) {
	t.Parallel()

	valid := []ID{"ip_address", "a", "x509_cert", "email2"}
	for _, id := range valid {
		if err := id.Validate(); err != nil {
			t.Errorf("Validate(%q) failed: %v", id, err)
		}
	}

	invalid := []ID{"", "IP", "9lives", "_leading", "has space"}
	for _, id := range invalid {
		err := id.Validate()
		if err == nil {
			t.Errorf("Validate(%q) succeeded, want error", id)
			continue
		}
		if !errors.Is(err, ErrInvalidID) {
			t.Errorf("Validate(%q) error should wrap ErrInvalidID, got %v", id, err)
		}
	}
}

func TestParseRef(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		wantID      ID
		wantVersion string
		wantErr     bool
	}{
		{name: "bare identifier", input: "ip_address", wantID: "ip_address"},
		{name: "display name normalized", input: "IP Address", wantID: "ip_address"},
		{name: "pinned version", input: "domain@1.2.0", wantID: "domain", wantVersion: "1.2.0"},
		{name: "normalized with version", input: "Whois Record@0.3", wantID: "whois_record", wantVersion: "0.3"},
		{name: "bad version", input: "domain@latest", wantErr: true},
		{name: "empty identifier", input: "@1.0.0", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ref, err := ParseRef(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRef(%q) succeeded, want error", tt.input)
				}
				if !errors.Is(err, ErrInvalidRef) {
					t.Errorf("error should wrap ErrInvalidRef, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRef(%q) failed: %v", tt.input, err)
			}
			if ref.ID != tt.wantID {
				t.Errorf("ID = %q, want %q", ref.ID, tt.wantID)
			}
			if ref.Version != tt.wantVersion {
				t.Errorf("Version = %q, want %q", ref.Version, tt.wantVersion)
			}
			if ref.Pinned() != (tt.wantVersion != "") {
				t.Errorf("Pinned() = %v, want %v", ref.Pinned(), tt.wantVersion != "")
			}
		})
	}
}

func TestRefString(t *testing.T) {
	t.Parallel()

	bare := Ref{ID: "domain"}
	if bare.String() != "domain" {
		t.Errorf("String() = %q, want %q", bare.String(), "domain")
	}

	pinned := Ref{ID: "domain", Version: "2.0.0"}
	if pinned.String() != "domain@2.0.0" {
		t.Errorf("String() = %q, want %q", pinned.String(), "domain@2.0.0")
	}
}
