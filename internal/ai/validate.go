package ai

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

const decisionSchemaJSON = `{
  "type": "object",
  "required": ["action", "amount"],
  "properties": {
    "action": {"type": "string", "enum": ["BUY", "SELL", "HOLD"]},
    "amount": {"type": "number", "minimum": 0},
    "thought": {"type": "string"}
  }
}`

var decisionSchema = jsonschema.MustCompileString("decision.json", decisionSchemaJSON)

// ValidateDecisionJSON checks a candidate payload against the decision
// contract before it is unmarshalled.
func ValidateDecisionJSON(raw string) error {
	if !gjson.Valid(raw) {
		return fmt.Errorf("invalid json")
	}
	var instance any
	if err := json.Unmarshal([]byte(raw), &instance); err != nil {
		return err
	}
	if err := decisionSchema.Validate(instance); err != nil {
		return fmt.Errorf("schema violation: %w", err)
	}
	return nil
}
