package grid

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const mapSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "width", "height", "terrain", "kingdoms"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "width": {"type": "integer", "minimum": 1, "maximum": 1024},
    "height": {"type": "integer", "minimum": 1, "maximum": 1024},
    "terrain": {"type": "array", "items": {"type": "string"}, "minItems": 1},
    "kingdoms": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "stock"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "name": {"type": "string"},
          "ai": {"type": "boolean"},
          "stock": {"type": "object", "additionalProperties": {"type": "integer", "minimum": 0}}
        },
        "additionalProperties": false
      }
    },
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["kind", "kingdom", "pos"],
        "properties": {
          "kind": {"type": "string", "minLength": 1},
          "kingdom": {"type": "string", "minLength": 1},
          "pos": {"type": "array", "items": {"type": "integer", "minimum": 0}, "minItems": 2, "maxItems": 2}
        },
        "additionalProperties": false
      }
    }
  },
  "additionalProperties": false
}`

var compiledMapSchema = jsonschema.MustCompileString("map.schema.json", mapSchema)

func validateMapJSON(raw []byte) error {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("parse: %w", err)
	}
	if err := compiledMapSchema.Validate(v); err != nil {
		return fmt.Errorf("map schema: %w", err)
	}
	return nil
}
