package agent

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// SchemaFor generates a tool's JSON-schema "parameters" object by reflecting
// over a typed Go args struct, tagged with jsonschema struct tags (e.g.
// `jsonschema:"required,description=..."`). Tools that need dynamic enums or
// conditional requiredness build their map by hand instead.
func SchemaFor[T any]() map[string]any {
	reflector := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(new(T))
	b, err := json.Marshal(schema)
	if err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out
}
