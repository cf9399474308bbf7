// SPDX-License-Identifier: MPL-2.0

package settings

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/fault"
	"github.com/graftlabs/graft/pkg/transform"
)

// Options configure resolution policy.
type Options struct {
	// KeepUnknownOverrides passes runtime override names no spec declares
	// through to the transform instead of dropping them.
	KeepUnknownOverrides bool
}

// Resolver computes the effective configuration for one invocation by
// layering, lowest to highest precedence: declared defaults, the global
// layer (only for settings marked global), the transform's own layer, and
// the caller's runtime overrides. A later layer wins only where it actually
// holds the key; absent keys fall through.
type Resolver struct {
	store  *Store
	logger *log.Logger
	opts   Options
}

// NewResolver returns a resolver over the given store.
func NewResolver(store *Store, logger *log.Logger, opts Options) *Resolver {
	if logger == nil {
		logger = log.Default()
	}
	return &Resolver{store: store, logger: logger, opts: opts}
}

// Resolve merges the layers for the transform bound as (target, label).
// descriptor carries the entity descriptor's setting specs, specs the
// transform's own; where both declare a name the transform's declaration
// wins and the descriptor seeds its default. Every required setting that
// resolves to no value is reported, collected into one fault.ConfigError.
func (r *Resolver) Resolve(descriptor, specs []entity.SettingSpec, target entity.ID, label string, overrides map[string]any) (transform.Config, error) {
	decls := Declared(descriptor, specs)
	name := fmt.Sprintf("%s/%s", target, label)

	global, err := r.store.Global()
	if err != nil {
		return nil, err
	}
	layer, err := r.store.Transform(target, label)
	if err != nil {
		return nil, err
	}

	cfg := make(transform.Config, len(decls))
	declared := make(map[string]bool, len(decls))
	var missing []string

	for _, d := range decls {
		key := d.Name.String()
		declared[key] = true

		value := d.Default
		if d.Global {
			value = r.overlay(value, global, key, d.Kind, name, "global")
		}
		value = r.overlay(value, layer, key, d.Kind, name, "transform")
		value = r.overlay(value, overrides, key, d.Kind, name, "override")

		if absent(value) {
			if d.Required {
				missing = append(missing, key)
			}
			continue
		}
		cfg[key] = value
	}

	var dropped []string
	for key, raw := range overrides {
		if declared[key] {
			continue
		}
		if r.opts.KeepUnknownOverrides {
			cfg[key] = raw
			continue
		}
		dropped = append(dropped, key)
	}
	if len(dropped) > 0 {
		sort.Strings(dropped)
		r.logger.Debug("dropping undeclared runtime overrides", "transform", name, "keys", dropped)
	}

	if len(missing) > 0 {
		return nil, &fault.ConfigError{Transform: name, Missing: missing}
	}
	return cfg, nil
}

// overlay applies one layer's value for key on top of the current value. A
// value that does not coerce to the declared kind is skipped, so the layer
// below keeps the key; for a required setting with no other source that
// surfaces as missing.
func (r *Resolver) overlay(current any, layer map[string]any, key string, kind entity.FieldKind, transformName, layerName string) any {
	raw, ok := layer[key]
	if !ok {
		return current
	}
	v, ok := coerce(kind, raw)
	if !ok {
		r.logger.Debug("ignoring setting value of the wrong kind",
			"transform", transformName, "layer", layerName, "name", key, "kind", kind)
		return current
	}
	return v
}

// Declared combines descriptor-level and transform-level setting specs into
// the effective declaration list of one transform binding: transform specs
// first in their declared order, then descriptor-only specs in theirs. Where
// both declare a name the transform's spec wins and the descriptor seeds its
// default.
func Declared(descriptor, specs []entity.SettingSpec) []entity.SettingSpec {
	merged := make([]entity.SettingSpec, 0, len(specs)+len(descriptor))
	index := make(map[entity.ID]int, len(specs))
	for _, s := range specs {
		index[s.Name] = len(merged)
		merged = append(merged, s)
	}
	for _, d := range descriptor {
		if i, ok := index[d.Name]; ok {
			if merged[i].Default == nil {
				merged[i].Default = d.Default
			}
			continue
		}
		merged = append(merged, d)
	}
	return merged
}

// absent reports whether a resolved value counts as no value at all.
func absent(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// coerce converts a loosely typed layer value to the declared kind. JSON
// documents and CLI flags deliver strings and float64s where plugins expect
// numbers or booleans; the conversions below cover those seams.
func coerce(kind entity.FieldKind, v any) (any, bool) {
	if v == nil {
		return nil, true
	}
	switch kind {
	case entity.KindText, entity.KindURL, entity.KindEmail, entity.KindMultiline:
		switch x := v.(type) {
		case string:
			return x, true
		case float64:
			return strconv.FormatFloat(x, 'f', -1, 64), true
		case int:
			return strconv.Itoa(x), true
		case int64:
			return strconv.FormatInt(x, 10), true
		case bool:
			return strconv.FormatBool(x), true
		}
		return nil, false
	case entity.KindNumber:
		switch x := v.(type) {
		case float64:
			return x, true
		case float32:
			return float64(x), true
		case int:
			return float64(x), true
		case int32:
			return float64(x), true
		case int64:
			return float64(x), true
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
			if err != nil {
				return nil, false
			}
			return f, true
		}
		return nil, false
	case entity.KindBoolean:
		switch x := v.(type) {
		case bool:
			return x, true
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(x))
			if err != nil {
				return nil, false
			}
			return b, true
		}
		return nil, false
	case entity.KindList:
		switch x := v.(type) {
		case []any:
			return x, true
		case []string:
			out := make([]any, len(x))
			for i, s := range x {
				out[i] = s
			}
			return out, true
		}
		return nil, false
	case entity.KindJSON:
		return v, true
	}
	return v, true
}
