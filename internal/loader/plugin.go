// SPDX-License-Identifier: MPL-2.0

package loader

import "github.com/graftlabs/graft/internal/registry"

// Manifest identifies a plugin to listings and load reports.
type Manifest struct {
	// Name is the plugin name.
	Name string `json:"name"`
	// Version is the plugin's own version, not the version of any entity
	// type it registers.
	Version string `json:"version,omitempty"`
	// Author names the plugin author.
	Author string `json:"author,omitempty"`
}

// Plugin is a compiled-in plugin: a set of entity types and transforms that
// registers itself during the load phase.
type Plugin interface {
	// Manifest identifies the plugin.
	Manifest() Manifest
	// Register adds the plugin's entity types and transforms. The registry
	// handed in is a private staging registry; on error none of the
	// registrations take effect.
	Register(reg *registry.Registry) error
}
