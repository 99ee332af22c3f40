package protocol

import (
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// CommandSchema validates COMMAND messages at the transport boundary before
// they reach the world inbox. The sim re-validates semantics per tick; this
// only rejects malformed shapes early.
const commandSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["type", "kind", "kingdom_id"],
  "properties": {
    "type": {"const": "COMMAND"},
    "protocol_version": {"type": "string"},
    "kind": {"enum": ["MOVE", "ATTACK", "GATHER", "BUILD", "TRAIN", "CANCEL_BUILD"]},
    "kingdom_id": {"type": "string", "minLength": 1},
    "unit_ids": {"type": "array", "items": {"type": "integer", "minimum": 1}},
    "target": {"type": "array", "items": {"type": "integer"}, "minItems": 2, "maxItems": 2},
    "target_id": {"type": "integer", "minimum": 0},
    "build_kind": {"type": "string"},
    "unit_kind": {"type": "string"}
  },
  "additionalProperties": false
}`

var compiledCommandSchema = jsonschema.MustCompileString("command.schema.json", commandSchema)

// ValidateCommandJSON checks a decoded COMMAND message against the schema.
func ValidateCommandJSON(v any) error {
	if err := compiledCommandSchema.Validate(v); err != nil {
		return fmt.Errorf("%s: %w", ErrProtoBadRequest, err)
	}
	return nil
}
