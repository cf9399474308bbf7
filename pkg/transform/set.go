// SPDX-License-Identifier: MPL-2.0

package transform

// Set is a named group of transform specs registered together, the way a
// plugin bundles related transforms.
type Set struct {
	// Name identifies the group in listings and load reports.
	Name string
	// Specs are the member transforms.
	Specs []Spec
}

// NewSet groups transform specs under a name.
func NewSet(name string, specs ...Spec) *Set {
	return &Set{Name: name, Specs: specs}
}
