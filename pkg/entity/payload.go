// SPDX-License-Identifier: MPL-2.0

package entity

import "sort"

// Reserved payload keys carrying entity metadata rather than field values.
const (
	// KeyID holds the entity instance identifier.
	KeyID = "id"
	// KeyType holds the entity type identifier.
	KeyType = "type"
	// KeyLabel holds the display label of the instance.
	KeyLabel = "label"
)

// Payload is a point-in-time snapshot of one entity instance: its field
// values plus the reserved metadata keys. Transforms receive payloads as
// input and must treat them as read-only.
type Payload map[string]any

// TypeID returns the entity type identifier recorded in the payload.
func (p Payload) TypeID() ID {
	s, _ := p[KeyType].(string)
	return ID(s)
}

// Label returns the display label recorded in the payload.
func (p Payload) Label() string {
	s, _ := p[KeyLabel].(string)
	return s
}

// GetString returns the named field as a string. Absent fields and fields
// holding non-string values return ("", false).
func (p Payload) GetString(name ID) (string, bool) {
	s, ok := p[string(name)].(string)
	return s, ok
}

// GetNumber returns the named field as a float64. Integer-typed values are
// widened; anything else returns (0, false).
func (p Payload) GetNumber(name ID) (float64, bool) {
	switch v := p[string(name)].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// GetBool returns the named field as a bool.
func (p Payload) GetBool(name ID) (bool, bool) {
	b, ok := p[string(name)].(bool)
	return b, ok
}

// GetList returns the named field as a []any.
func (p Payload) GetList(name ID) ([]any, bool) {
	l, ok := p[string(name)].([]any)
	return l, ok
}

// GetByKind returns the first field whose kind is compatible with the
// requested kind, together with the field's name. Declared kinds from the
// type descriptor are consulted first, in schema order; payload keys absent
// from the schema fall back to kind inference, in sorted key order. A nil
// type descriptor skips straight to inference.
func (p Payload) GetByKind(t *Type, kind FieldKind) (any, ID, bool) {
	if t != nil {
		for i := range t.Fields {
			f := &t.Fields[i]
			v, present := p[string(f.Name)]
			if !present {
				continue
			}
			if f.Kind.CompatibleWith(kind) {
				return v, f.Name, true
			}
		}
	}

	names := make([]string, 0, len(p))
	for name := range p {
		if name == KeyID || name == KeyType || name == KeyLabel {
			continue
		}
		if t != nil {
			if _, declared := t.Field(ID(name)); declared {
				continue
			}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		v := p[name]
		if InferKind(v).CompatibleWith(kind) {
			return v, ID(name), true
		}
	}

	return nil, "", false
}

// Clone returns a shallow copy of the payload.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
