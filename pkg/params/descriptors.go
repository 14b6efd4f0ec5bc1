// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keymgmt.
//
// go-keymgmt is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package params

// Descriptor declares a parameter a key manager recognizes: its name, its
// value kind, and the directions it supports. Descriptor lists are static
// per algorithm family and never mutated after initialization.
type Descriptor struct {
	// Name is the parameter's string key.
	Name string `yaml:"name"`

	// Kind is the declared value type.
	Kind Kind `yaml:"-"`

	// Settable reports whether set-params/import accepts this name.
	Settable bool `yaml:"settable"`

	// Gettable reports whether get-params/export supplies this name.
	Gettable bool `yaml:"gettable"`

	// Mandatory marks a parameter get-params must be able to fill for any
	// populated key; failing to fill a requested mandatory parameter fails
	// the whole get-params call.
	Mandatory bool `yaml:"mandatory,omitempty"`
}

// Descriptors is a static list of recognized parameters.
type Descriptors []Descriptor

// Find returns the descriptor with the given name.
func (ds Descriptors) Find(name string) (Descriptor, bool) {
	for _, d := range ds {
		if d.Name == name {
			return d, true
		}
	}
	return Descriptor{}, false
}

// Contains reports whether a descriptor with the given name exists.
func (ds Descriptors) Contains(name string) bool {
	_, ok := ds.Find(name)
	return ok
}

// Names returns the descriptor names in order.
func (ds Descriptors) Names() []string {
	names := make([]string, len(ds))
	for i, d := range ds {
		names[i] = d.Name
	}
	return names
}
