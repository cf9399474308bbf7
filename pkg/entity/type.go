// SPDX-License-Identifier: MPL-2.0

package entity

import (
	"errors"
	"fmt"

	"github.com/graftlabs/graft/pkg/semver"
)

// Type is a versioned entity type descriptor. Multiple versions of the same
// identifier may be registered side by side; transforms bind to them through
// version requirements.
type Type struct {
	// ID is the canonical snake_case type identifier (required).
	ID ID `json:"id"`
	// Version is the descriptor's semantic version (required).
	Version string `json:"version"`
	// Label is the human-readable type name shown in graph views.
	Label string `json:"label,omitempty"`
	// Description explains what the entity represents.
	Description string `json:"description,omitempty"`
	// Author names the plugin author.
	Author string `json:"author,omitempty"`
	// Icon is the icon slug used by graph views.
	Icon string `json:"icon,omitempty"`
	// Color is the node color used by graph views.
	Color string `json:"color,omitempty"`
	// Fields is the ordered field schema of the type.
	Fields []Field `json:"fields,omitempty"`
	// Settings are descriptor-level setting defaults, the lowest layer of
	// the settings resolution chain for transforms targeting this type.
	Settings []SettingSpec `json:"settings,omitempty"`
}

// ErrInvalidType indicates a descriptor that fails validation.
var ErrInvalidType = errors.New("invalid entity type")

// Validate checks the descriptor and aggregates all problems found.
func (t *Type) Validate() error {
	var errs []error

	if err := t.ID.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !semver.IsValidVersion(t.Version) {
		errs = append(errs, fmt.Errorf("version %q is not a semantic version", t.Version))
	}

	seen := make(map[ID]struct{}, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := seen[f.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate field %q", f.Name))
		}
		seen[f.Name] = struct{}{}
	}

	for i := range t.Settings {
		if err := t.Settings[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidType, t.ID, errors.Join(errs...))
	}
	return nil
}

// Key returns the unique "id@version" registry key of the descriptor, with
// the version in canonical form.
func (t *Type) Key() string {
	v, err := semver.ParseVersion(t.Version)
	if err != nil {
		return string(t.ID) + "@" + t.Version
	}
	return string(t.ID) + "@" + v.Canonical()
}

// Field returns the named field descriptor.
func (t *Type) Field(name ID) (*Field, bool) {
	for i := range t.Fields {
		if t.Fields[i].Name == name {
			return &t.Fields[i], true
		}
	}
	return nil, false
}
