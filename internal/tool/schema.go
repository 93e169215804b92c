package tool

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// GenerateSchema reflects a JSON Schema for a tool input struct. Field
// descriptions come from `jsonschema_description` struct tags. The result
// is a plain map so it drops straight into a tool descriptor.
func GenerateSchema[T any]() map[string]any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
	}
	var v T
	schema := reflector.Reflect(&v)

	raw, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("tool: reflect input schema: %v", err))
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(fmt.Sprintf("tool: decode input schema: %v", err))
	}
	delete(m, "$schema")
	delete(m, "$id")
	return m
}
