// SPDX-License-Identifier: MPL-2.0

package entity

import "fmt"

// SettingSpec describes one configurable setting exposed by an entity type
// descriptor or by a transform. Descriptor-level specs provide the default
// layer of the settings resolution chain; transform-level specs declare what
// a transform reads at run time.
type SettingSpec struct {
	// Name is the canonical snake_case setting identifier (required).
	Name ID `json:"name"`
	// Kind classifies the setting's values (required).
	Kind FieldKind `json:"kind"`
	// Label is the human-readable setting name.
	Label string `json:"label,omitempty"`
	// Description explains what the setting controls.
	Description string `json:"description,omitempty"`
	// Default is the value used when no layer provides one.
	Default any `json:"default,omitempty"`
	// Required marks settings that must resolve to a non-empty value
	// before a transform may run.
	Required bool `json:"required,omitempty"`
	// Global lets the shared global settings layer supply this value.
	// Non-global settings only resolve from their transform's own layer
	// and runtime overrides.
	Global bool `json:"global,omitempty"`
	// Secret redacts the value in listings and logs.
	Secret bool `json:"secret,omitempty"`
}

// Validate checks the setting descriptor.
func (s *SettingSpec) Validate() error {
	if err := s.Name.Validate(); err != nil {
		return fmt.Errorf("setting name: %w", err)
	}
	if err := s.Kind.Validate(); err != nil {
		return fmt.Errorf("setting %q: %w", s.Name, err)
	}
	return nil
}
