// SPDX-License-Identifier: MPL-2.0

// Package transform defines the API third-party plugins implement: transform
// specs bound to entity types, the run context bodies receive, the output
// model they emit through it, and helpers for script-backed bodies.
package transform

import (
	"fmt"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
)

// ItemKind classifies one streamed output item.
type ItemKind string

const (
	// ItemEntity is a single new entity payload.
	ItemEntity ItemKind = "entity"
	// ItemSubgraph is a set of nodes plus the edges connecting them.
	ItemSubgraph ItemKind = "subgraph"
	// ItemNone signals an emission that carried no data.
	ItemNone ItemKind = "none"
)

// Item is one normalized output of a transform as it appears on the stream.
type Item struct {
	Kind     ItemKind       `json:"kind"`
	Entity   entity.Payload `json:"entity,omitempty"`
	Subgraph *Subgraph      `json:"subgraph,omitempty"`
}

// Node describes one new entity inside an emitted value.
type Node struct {
	// Type is the entity type identifier of the node (required).
	Type entity.ID `json:"type"`
	// Label is the display label of the new entity.
	Label string `json:"label,omitempty"`
	// Fields holds the node's field values by field name.
	Fields map[string]any `json:"fields,omitempty"`
	// Weight is an optional relevance weight used by graph layouts.
	Weight float64 `json:"weight,omitempty"`
}

// Edge connects two nodes of a subgraph by their positions in Nodes.
type Edge struct {
	// From is the index of the source node.
	From int `json:"from"`
	// To is the index of the target node.
	To int `json:"to"`
	// Label annotates the connection.
	Label string `json:"label,omitempty"`
}

// Subgraph is a connected set of new entities emitted as one output item.
type Subgraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges,omitempty"`
}

// Validate checks that every edge points at existing nodes.
func (s *Subgraph) Validate() error {
	for _, e := range s.Edges {
		if e.From < 0 || e.From >= len(s.Nodes) || e.To < 0 || e.To >= len(s.Nodes) {
			return fmt.Errorf("edge %d->%d outside node range 0..%d", e.From, e.To, len(s.Nodes)-1)
		}
	}
	return nil
}

// payload converts a node into an entity payload.
func (n *Node) payload() entity.Payload {
	p := make(entity.Payload, len(n.Fields)+3)
	for k, v := range n.Fields {
		p[k] = v
	}
	p[entity.KeyType] = string(n.Type)
	if n.Label != "" {
		p[entity.KeyLabel] = n.Label
	}
	if n.Weight != 0 {
		p["weight"] = n.Weight
	}
	return p
}

// Normalize converts one emitted value into stream items. Accepted shapes:
// nil (a single no-data item), entity payloads and plain maps carrying a
// type key, Node values, subgraphs, and slices of those, flattened one
// level. Everything else fails the transform.
func Normalize(v any) ([]Item, error) {
	if v == nil {
		return []Item{{Kind: ItemNone}}, nil
	}

	switch out := v.(type) {
	case entity.Payload:
		return one(payloadItem(out))
	case map[string]any:
		return one(payloadItem(entity.Payload(out)))
	case Node:
		return one(nodeItem(&out))
	case *Node:
		return one(nodeItem(out))
	case Subgraph:
		return one(subgraphItem(&out))
	case *Subgraph:
		return one(subgraphItem(out))
	case []entity.Payload:
		items := make([]Item, 0, len(out))
		for _, p := range out {
			item, err := payloadItem(p)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case []map[string]any:
		items := make([]Item, 0, len(out))
		for _, p := range out {
			item, err := payloadItem(entity.Payload(p))
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case []Node:
		items := make([]Item, 0, len(out))
		for i := range out {
			item, err := nodeItem(&out[i])
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	case []any:
		items := make([]Item, 0, len(out))
		for _, elem := range out {
			if _, nested := elem.([]any); nested {
				return nil, fault.New(fault.CodeTransformFailed, "nested slices are not a valid transform output")
			}
			sub, err := Normalize(elem)
			if err != nil {
				return nil, err
			}
			items = append(items, sub...)
		}
		return items, nil
	default:
		return nil, fault.Newf(fault.CodeTransformFailed, "unsupported transform output type %T", v)
	}
}

func one(item Item, err error) ([]Item, error) {
	if err != nil {
		return nil, err
	}
	return []Item{item}, nil
}

func payloadItem(p entity.Payload) (Item, error) {
	if p.TypeID() == "" {
		return Item{}, fault.New(fault.CodeTransformFailed, "emitted entity is missing its type key")
	}
	return Item{Kind: ItemEntity, Entity: p}, nil
}

func nodeItem(n *Node) (Item, error) {
	if n.Type == "" {
		return Item{}, fault.New(fault.CodeTransformFailed, "emitted node is missing its type")
	}
	return Item{Kind: ItemEntity, Entity: n.payload()}, nil
}

func subgraphItem(s *Subgraph) (Item, error) {
	for i := range s.Nodes {
		if s.Nodes[i].Type == "" {
			return Item{}, fault.Newf(fault.CodeTransformFailed, "subgraph node %d is missing its type", i)
		}
	}
	if err := s.Validate(); err != nil {
		return Item{}, fault.Wrap(fault.CodeTransformFailed, "invalid subgraph", err)
	}
	return Item{Kind: ItemSubgraph, Subgraph: s}, nil
}
