// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/semver"
)

// Wildcard is the target that binds a transform to every entity type.
const Wildcard = entity.ID("*")

// Func is a transform body. Output is emitted through the run context
// rather than returned, so bodies can stream items as they are found. A nil
// error means the body ran to completion; errors raised by the context's
// emit methods must be returned unchanged.
type Func func(rc *RunContext, in entity.Payload) error

// Spec declares one transform: the label callers invoke it by, the entity
// type versions it binds to, the settings it reads, and the body that runs.
type Spec struct {
	// Label is the canonical snake_case transform identifier (required).
	Label entity.ID `json:"label"`
	// Target is the entity type identifier the transform binds to, or
	// Wildcard to bind to every type (required).
	Target entity.ID `json:"target"`
	// Requires constrains which versions of the target the transform
	// accepts, in the comma-separated constraint language. Empty means
	// every version.
	Requires string `json:"requires,omitempty"`
	// Title is the human-readable transform name shown in menus.
	Title string `json:"title,omitempty"`
	// Description explains what the transform does.
	Description string `json:"description,omitempty"`
	// Icon is the icon slug shown in menus.
	Icon string `json:"icon,omitempty"`
	// Accepts advertises which entity types make useful inputs. It is
	// advisory: dispatch never enforces it.
	Accepts []entity.ID `json:"accepts,omitempty"`
	// Produces advertises which entity types the transform emits. It is
	// advisory, like Accepts.
	Produces []entity.ID `json:"produces,omitempty"`
	// Settings declares the settings the body reads at run time.
	Settings []entity.SettingSpec `json:"settings,omitempty"`
	// Deps lists external tools that must be on PATH before the body runs.
	Deps []string `json:"deps,omitempty"`
	// Func is the transform body (required).
	Func Func `json:"-"`
}

// ErrInvalidSpec indicates a transform spec that fails validation.
var ErrInvalidSpec = errors.New("invalid transform spec")

// Validate checks the spec and aggregates all problems found.
func (s *Spec) Validate() error {
	var errs []error

	if err := s.Label.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("label: %w", err))
	}
	if s.Target != Wildcard {
		if err := s.Target.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("target: %w", err))
		}
	}
	if !semver.IsValidConstraintSet(s.Requires) {
		errs = append(errs, fmt.Errorf("requires %q is not a valid version requirement", s.Requires))
	}
	for i := range s.Settings {
		if err := s.Settings[i].Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if s.Func == nil {
		errs = append(errs, errors.New("missing body"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidSpec, s.Label, errors.Join(errs...))
	}
	return nil
}

// Name returns the "target/label" display name of the spec.
func (s *Spec) Name() string {
	return string(s.Target) + "/" + string(s.Label)
}
