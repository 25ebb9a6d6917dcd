package usersapi

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const usersSchemaURL = "userdash://schemas/users.json"

// usersSchema accepts extra fields; only the ones the dashboard renders are required.
const usersSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "name", "email"],
    "properties": {
      "id": {"type": "integer"},
      "name": {"type": "string"},
      "email": {"type": "string"},
      "company": {
        "type": ["object", "null"],
        "properties": {"name": {"type": "string"}}
      }
    }
  }
}`

// PayloadValidator checks decoded user payloads against the users schema.
type PayloadValidator struct {
	schema *jsonschema.Schema
}

// NewPayloadValidator compiles the embedded users schema.
func NewPayloadValidator() (*PayloadValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(usersSchemaURL, strings.NewReader(usersSchema)); err != nil {
		return nil, fmt.Errorf("usersapi: load users schema: %w", err)
	}
	schema, err := compiler.Compile(usersSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("usersapi: compile users schema: %w", err)
	}
	return &PayloadValidator{schema: schema}, nil
}

// Validate expects a value produced by encoding/json (any, []any, map[string]any).
func (v *PayloadValidator) Validate(payload any) error {
	if err := v.schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedShape, err)
	}
	return nil
}
