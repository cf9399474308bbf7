// SPDX-License-Identifier: MPL-2.0

package transform

import "sort"

// Config is the resolved settings view a transform body reads. Values have
// already passed the resolution chain; bodies never see where a value came
// from.
type Config map[string]any

// Get returns the named setting value.
func (c Config) Get(name string) (any, bool) {
	v, ok := c[name]
	return v, ok
}

// Has reports whether the named setting resolved to a value.
func (c Config) Has(name string) bool {
	_, ok := c[name]
	return ok
}

// GetString returns the named setting as a string. Absent settings and
// non-string values return ("", false).
func (c Config) GetString(name string) (string, bool) {
	s, ok := c[name].(string)
	return s, ok
}

// GetNumber returns the named setting as a float64, widening integer types.
func (c Config) GetNumber(name string) (float64, bool) {
	switch v := c[name].(type) {
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

// GetBool returns the named setting as a bool.
func (c Config) GetBool(name string) (bool, bool) {
	b, ok := c[name].(bool)
	return b, ok
}

// Names returns the resolved setting names in sorted order.
func (c Config) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
