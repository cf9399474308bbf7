// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"testing"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
)

func TestNormalize_SingleShapes(t *testing.T) {
	t.Parallel()

	t.Run("nil becomes a no-data item", func(t *testing.T) {
		t.Parallel()

		items, err := Normalize(nil)
		if err != nil {
			t.Fatalf("Normalize(nil) failed: %v", err)
		}
		if len(items) != 1 || items[0].Kind != ItemNone {
			t.Errorf("items = %+v, want one none item", items)
		}
	})

	t.Run("payload", func(t *testing.T) {
		t.Parallel()

		items, err := Normalize(entity.Payload{"type": "domain", "domain": "example.org"})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if len(items) != 1 || items[0].Kind != ItemEntity {
			t.Fatalf("items = %+v, want one entity item", items)
		}
		if items[0].Entity.TypeID() != "domain" {
			t.Errorf("entity type = %q", items[0].Entity.TypeID())
		}
	})

	t.Run("plain map", func(t *testing.T) {
		t.Parallel()

		items, err := Normalize(map[string]any{"type": "ip_address", "ip": "203.0.113.7"})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if items[0].Kind != ItemEntity {
			t.Errorf("kind = %q, want entity", items[0].Kind)
		}
	})

	t.Run("node", func(t *testing.T) {
		t.Parallel()

		items, err := Normalize(Node{
			Type:   "ip_address",
			Label:  "203.0.113.7",
			Fields: map[string]any{"ip": "203.0.113.7"},
			Weight: 0.9,
		})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}

		p := items[0].Entity
		if p.TypeID() != "ip_address" || p.Label() != "203.0.113.7" {
			t.Errorf("payload metadata = %q/%q", p.TypeID(), p.Label())
		}
		if got, ok := p.GetString("ip"); !ok || got != "203.0.113.7" {
			t.Errorf("field ip = %q, %v", got, ok)
		}
		if got, ok := p.GetNumber("weight"); !ok || got != 0.9 {
			t.Errorf("weight = %v, %v", got, ok)
		}
	})

	t.Run("subgraph", func(t *testing.T) {
		t.Parallel()

		items, err := Normalize(&Subgraph{
			Nodes: []Node{
				{Type: "domain", Label: "example.org"},
				{Type: "ip_address", Label: "203.0.113.7"},
			},
			Edges: []Edge{{From: 0, To: 1, Label: "resolves_to"}},
		})
		if err != nil {
			t.Fatalf("Normalize failed: %v", err)
		}
		if items[0].Kind != ItemSubgraph || len(items[0].Subgraph.Nodes) != 2 {
			t.Errorf("items = %+v, want one subgraph item", items)
		}
	})
}

func TestNormalize_SlicesFlattenOneLevel(t *testing.T) {
	t.Parallel()

	items, err := Normalize([]any{
		entity.Payload{"type": "domain", "domain": "a.org"},
		Node{Type: "ip_address", Label: "203.0.113.7"},
		&Subgraph{Nodes: []Node{{Type: "domain"}}},
	})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("len(items) = %d, want 3", len(items))
	}
	wantKinds := []ItemKind{ItemEntity, ItemEntity, ItemSubgraph}
	for i, k := range wantKinds {
		if items[i].Kind != k {
			t.Errorf("items[%d].Kind = %q, want %q", i, items[i].Kind, k)
		}
	}

	typed, err := Normalize([]Node{{Type: "domain"}, {Type: "domain"}})
	if err != nil {
		t.Fatalf("Normalize failed: %v", err)
	}
	if len(typed) != 2 {
		t.Errorf("len(typed) = %d, want 2", len(typed))
	}
}

func TestNormalize_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		value any
	}{
		{name: "missing type key", value: map[string]any{"domain": "example.org"}},
		{name: "node without type", value: Node{Label: "x"}},
		{name: "subgraph node without type", value: &Subgraph{Nodes: []Node{{Label: "x"}}}},
		{name: "edge out of range", value: &Subgraph{Nodes: []Node{{Type: "domain"}}, Edges: []Edge{{From: 0, To: 3}}}},
		{name: "nested slice", value: []any{[]any{"x"}}},
		{name: "unsupported type", value: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Normalize(tt.value)
			if err == nil {
				t.Fatal("Normalize succeeded, want error")
			}
			if fault.CodeOf(err) != fault.CodeTransformFailed {
				t.Errorf("CodeOf = %q, want %q", fault.CodeOf(err), fault.CodeTransformFailed)
			}
		})
	}
}

func TestSubgraphValidate(t *testing.T) {
	t.Parallel()

	ok := &Subgraph{
		Nodes: []Node{{Type: "a"}, {Type: "b"}},
		Edges: []Edge{{From: 0, To: 1}},
	}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() failed: %v", err)
	}

	bad := &Subgraph{Nodes: []Node{{Type: "a"}}, Edges: []Edge{{From: -1, To: 0}}}
	if err := bad.Validate(); err == nil {
		t.Error("Validate() with negative index succeeded, want error")
	}
}
