// SPDX-License-Identifier: MPL-2.0

package entity

// Blueprint builds the JSON-ready skeleton of a new entity of the given
// type: the reserved metadata keys plus one record per field carrying the
// information an editor needs to render an empty instance.
func Blueprint(t *Type) map[string]any {
	fields := make(map[string]any, len(t.Fields))
	for i := range t.Fields {
		f := &t.Fields[i]
		record := map[string]any{
			"kind":  string(f.Kind),
			"label": f.Label,
		}
		if f.Description != "" {
			record["description"] = f.Description
		}
		if f.Placeholder != "" {
			record["placeholder"] = f.Placeholder
		}
		if f.Default != nil {
			record["value"] = f.Default
		}
		if f.Required {
			record["required"] = true
		}
		fields[string(f.Name)] = record
	}

	return map[string]any{
		KeyType:  string(t.ID),
		KeyLabel: t.Label,
		"icon":   t.Icon,
		"color":  t.Color,
		"fields": fields,
	}
}
