package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidateJSONAgainstSchema checks sanitized model output against the
// document field schema. Runs after sanitization, so a failure here means the
// model produced values the contract cannot accept, not cosmetic noise.
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal field schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("document_fields.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("register field schema: %w", err)
	}
	schema, err := compiler.Compile("document_fields.json")
	if err != nil {
		return fmt.Errorf("compile field schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode model output: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("model output violates field schema: %w", err)
	}
	return nil
}
