// SPDX-License-Identifier: MPL-2.0

package loader

import (
	_ "embed"
	"fmt"

	"github.com/graftlabs/graft/internal/registry"
	"github.com/graftlabs/graft/pkg/cueutil"
	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/transform"
)

//go:embed schema.cue
var schemaFile []byte

// Descriptor is one plugin descriptor file: entity type descriptors plus
// script transforms, declared in CUE or JSON.
type Descriptor struct {
	// Name identifies the plugin.
	Name string `json:"name"`
	// Version is the plugin's version.
	Version string `json:"version,omitempty"`
	// Author names the plugin author. Entities that carry no author of
	// their own inherit it.
	Author string `json:"author,omitempty"`
	// Entities are the entity type descriptors the plugin registers.
	Entities []entity.Type `json:"entities,omitempty"`
	// Transforms are the script transforms the plugin registers.
	Transforms []ScriptTransform `json:"transforms,omitempty"`
}

// ScriptTransform declares a transform whose body is a POSIX shell script.
// The declarative fields mirror transform.Spec; Script replaces the compiled
// body.
type ScriptTransform struct {
	// Label is the canonical snake_case transform identifier.
	Label entity.ID `json:"label"`
	// Target is the entity type the transform binds to, "*" for every type.
	Target entity.ID `json:"target"`
	// Requires constrains the target versions, empty for every version.
	Requires string `json:"requires,omitempty"`
	// Title is the human-readable transform name.
	Title string `json:"title,omitempty"`
	// Description explains what the transform does.
	Description string `json:"description,omitempty"`
	// Icon is the icon slug shown in menus.
	Icon string `json:"icon,omitempty"`
	// Accepts advertises useful input entity types.
	Accepts []entity.ID `json:"accepts,omitempty"`
	// Produces advertises emitted entity types.
	Produces []entity.ID `json:"produces,omitempty"`
	// Settings declares the settings the script reads.
	Settings []entity.SettingSpec `json:"settings,omitempty"`
	// Deps lists external tools the script needs on PATH.
	Deps []string `json:"deps,omitempty"`
	// Script is the POSIX shell body. It sees the input payload as
	// GRAFT_INPUT and each resolved setting as GRAFT_SETTING_<NAME>, and
	// every non-empty stdout line must be one JSON node object.
	Script string `json:"script"`
}

// ParseDescriptor parses and validates one descriptor file against the
// embedded schema. CUE is a superset of JSON, so .cue and .json files go
// through the same path.
func ParseDescriptor(data []byte, path string) (*Descriptor, error) {
	result, err := cueutil.ParseAndDecode[Descriptor](schemaFile, data, "#Plugin", cueutil.WithFilename(path))
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// Manifest identifies the descriptor as a plugin.
func (d *Descriptor) Manifest() Manifest {
	return Manifest{Name: d.Name, Version: d.Version, Author: d.Author}
}

// register adds the descriptor's contents to a registry.
func (d *Descriptor) register(reg *registry.Registry) error {
	for i := range d.Entities {
		et := d.Entities[i]
		if et.Author == "" {
			et.Author = d.Author
		}
		if err := reg.RegisterEntity(&et); err != nil {
			return err
		}
	}
	for i := range d.Transforms {
		spec, err := d.Transforms[i].Spec()
		if err != nil {
			return err
		}
		if err := reg.RegisterTransform(spec); err != nil {
			return err
		}
	}
	return nil
}

// Spec compiles the script and builds the registrable transform spec.
func (t *ScriptTransform) Spec() (*transform.Spec, error) {
	fn, err := transform.ScriptFunc(t.Script)
	if err != nil {
		return nil, fmt.Errorf("transform %q: %w", t.Label, err)
	}
	return &transform.Spec{
		Label:       t.Label,
		Target:      t.Target,
		Requires:    t.Requires,
		Title:       t.Title,
		Description: t.Description,
		Icon:        t.Icon,
		Accepts:     t.Accepts,
		Produces:    t.Produces,
		Settings:    t.Settings,
		Deps:        t.Deps,
		Func:        fn,
	}, nil
}
