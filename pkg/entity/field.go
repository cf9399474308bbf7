// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"errors"
	"fmt"
)

// FieldKind classifies the value a field holds and how editors render it.
type FieldKind string

const (
	// KindText is a single-line string value.
	KindText FieldKind = "text"
	// KindNumber is a numeric value, carried as float64 in payloads.
	KindNumber FieldKind = "number"
	// KindBoolean is a true/false value.
	KindBoolean FieldKind = "boolean"
	// KindJSON is an arbitrary structured value.
	KindJSON FieldKind = "json"
	// KindURL is a string value holding a URL.
	KindURL FieldKind = "url"
	// KindEmail is a string value holding an email address.
	KindEmail FieldKind = "email"
	// KindList is a list of values.
	KindList FieldKind = "list"
	// KindMultiline is a multi-line string value.
	KindMultiline FieldKind = "multiline"
)

// ErrInvalidFieldKind indicates an unknown field kind.
var ErrInvalidFieldKind = errors.New("invalid field kind")

// Validate checks that the kind is one of the known values.
func (k FieldKind) Validate() error {
	switch k {
	case KindText, KindNumber, KindBoolean, KindJSON, KindURL, KindEmail, KindList, KindMultiline:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidFieldKind, k)
}

// IsValid reports whether the kind is one of the known values.
func (k FieldKind) IsValid() bool {
	return k.Validate() == nil
}

// Textual reports whether the kind belongs to the string-valued group whose
// members are interchangeable for typed access (text, url, email, multiline).
func (k FieldKind) Textual() bool {
	switch k {
	case KindText, KindURL, KindEmail, KindMultiline:
		return true
	}
	return false
}

// CompatibleWith reports whether values of kind k satisfy a request for
// kind other. Textual kinds are mutually compatible; every other kind only
// matches itself.
func (k FieldKind) CompatibleWith(other FieldKind) bool {
	if k == other {
		return true
	}
	return k.Textual() && other.Textual()
}

// InferKind derives a field kind from a Go value, as produced by JSON
// decoding. Unknown shapes fall back to KindJSON.
func InferKind(v any) FieldKind {
	switch v.(type) {
	case string:
		return KindText
	case float64, float32, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return KindNumber
	case bool:
		return KindBoolean
	case []any, []string:
		return KindList
	default:
		return KindJSON
	}
}

// Field describes one field of an entity type.
type Field struct {
	// Name is the canonical snake_case field identifier (required).
	Name ID `json:"name"`
	// Kind classifies the field's values (required).
	Kind FieldKind `json:"kind"`
	// Label is the human-readable field name shown in editors.
	Label string `json:"label,omitempty"`
	// Description explains what the field holds.
	Description string `json:"description,omitempty"`
	// Placeholder is the editor hint shown while the field is empty.
	Placeholder string `json:"placeholder,omitempty"`
	// Default is the value new entities start with.
	Default any `json:"default,omitempty"`
	// Required marks fields that must be filled before a transform runs.
	Required bool `json:"required,omitempty"`
}

// Validate checks the field descriptor.
func (f *Field) Validate() error {
	if err := f.Name.Validate(); err != nil {
		return fmt.Errorf("field name: %w", err)
	}
	if err := f.Kind.Validate(); err != nil {
		return fmt.Errorf("field %q: %w", f.Name, err)
	}
	return nil
}
