package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// NameListSchema is the shape we accept from the service: a JSON array of strings.
var NameListSchema = map[string]any{
	"type":  "array",
	"items": map[string]any{"type": "string"},
}

// nameListSchema is compiled on first use; every reply is checked against it.
var nameListSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileSchema(NameListSchema)
})

func compileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	return compiler.Compile("schema.json")
}

// validateNameList checks data against NameListSchema.
func validateNameList(data []byte) error {
	schema, err := nameListSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	return validate(schema, data)
}

func validate(schema *jsonschema.Schema, data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
