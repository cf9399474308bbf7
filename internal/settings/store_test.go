// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())

	if err := s.SetGlobal("api_key", "abc123"); err != nil {
		t.Fatalf("SetGlobal error = %v", err)
	}
	if err := s.SetGlobal("timeout", 45); err != nil {
		t.Fatalf("SetGlobal error = %v", err)
	}
	if err := s.SetTransform("domain", "dns_lookup", "resolver", "1.1.1.1"); err != nil {
		t.Fatalf("SetTransform error = %v", err)
	}

	global, err := s.Global()
	if err != nil {
		t.Fatalf("Global error = %v", err)
	}
	if got := global["api_key"]; got != "abc123" {
		t.Errorf("global api_key = %v, want abc123", got)
	}
	// JSON numbers come back as float64.
	if got := global["timeout"]; got != float64(45) {
		t.Errorf("global timeout = %v (%T), want 45", got, got)
	}

	layer, err := s.Transform("domain", "dns_lookup")
	if err != nil {
		t.Fatalf("Transform error = %v", err)
	}
	if got := layer["resolver"]; got != "1.1.1.1" {
		t.Errorf("transform resolver = %v, want 1.1.1.1", got)
	}

	if err := s.UnsetGlobal("api_key"); err != nil {
		t.Fatalf("UnsetGlobal error = %v", err)
	}
	global, err = s.Global()
	if err != nil {
		t.Fatalf("Global after unset error = %v", err)
	}
	if _, ok := global["api_key"]; ok {
		t.Error("global api_key still present after UnsetGlobal")
	}
	if _, ok := global["timeout"]; !ok {
		t.Error("global timeout lost by UnsetGlobal of another key")
	}
}

func TestStoreMissingFilesAreEmptyLayers(t *testing.T) {
	t.Parallel()

	s := NewStore(filepath.Join(t.TempDir(), "does-not-exist-yet"))

	global, err := s.Global()
	if err != nil {
		t.Fatalf("Global error = %v", err)
	}
	if len(global) != 0 {
		t.Errorf("missing global layer = %v, want empty", global)
	}

	layer, err := s.Transform("domain", "dns_lookup")
	if err != nil {
		t.Fatalf("Transform error = %v", err)
	}
	if len(layer) != 0 {
		t.Errorf("missing transform layer = %v, want empty", layer)
	}
}

func TestStorePreservesForeignKeys(t *testing.T) {
	t.Parallel()

	s := NewStore(t.TempDir())
	path := s.TransformPath("domain", "dns_lookup")

	// A document written by a plugin author, with a key the store was
	// never told about.
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll error = %v", err)
	}
	doc := []byte("{\n  \"custom_note\": \"keep me\",\n  \"resolver\": \"8.8.8.8\"\n}\n")
	if err := os.WriteFile(path, doc, 0o600); err != nil {
		t.Fatalf("WriteFile error = %v", err)
	}

	if err := s.SetTransform("domain", "dns_lookup", "resolver", "1.1.1.1"); err != nil {
		t.Fatalf("SetTransform error = %v", err)
	}

	layer, err := s.Transform("domain", "dns_lookup")
	if err != nil {
		t.Fatalf("Transform error = %v", err)
	}
	if got := layer["custom_note"]; got != "keep me" {
		t.Errorf("custom_note = %v, want preserved", got)
	}
	if got := layer["resolver"]; got != "1.1.1.1" {
		t.Errorf("resolver = %v, want 1.1.1.1", got)
	}
}

func TestStorePaths(t *testing.T) {
	t.Parallel()

	s := NewStore("/tmp/graft-settings")
	if got, want := s.GlobalPath(), filepath.Join("/tmp/graft-settings", "global.json"); got != want {
		t.Errorf("GlobalPath = %s, want %s", got, want)
	}
	got := s.TransformPath("domain", "dns_lookup")
	want := filepath.Join("/tmp/graft-settings", "transforms", "domain__dns_lookup.json")
	if got != want {
		t.Errorf("TransformPath = %s, want %s", got, want)
	}
}
