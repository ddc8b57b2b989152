// Package contracts defines the JSON-schema contracts that gate every
// structured LLM completion in the pipeline (PlanOutput from the
// Planner, ResolverOutput from each capability Resolver) and validates
// raw completions against them. Schema compilation follows
// goadesign-goa-ai's registry.validatePayloadJSONAgainstSchema: decode
// the schema document, compile it once with
// github.com/santhosh-tekuri/jsonschema/v6, and validate the decoded
// payload document against it.
package contracts

import (
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Name identifies a registered schema.
type Name string

const (
	PlanOutputSchema     Name = "planOutput"
	ResolverOutputSchema Name = "resolverOutput"
)

// planOutputSchemaJSON mirrors the PlanOutput shape from the data model:
// intentType, confidence, riskLevel, needsApproval, missingFields, plan.
const planOutputSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["intentType", "confidence", "riskLevel", "needsApproval", "plan"],
  "properties": {
    "intentType": {"type": "string", "enum": ["operation", "conversation", "meta"]},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "riskLevel": {"type": "string", "enum": ["low", "medium", "high"]},
    "needsApproval": {"type": "boolean"},
    "missingFields": {
      "type": "array",
      "items": {
        "type": "string",
        "enum": ["intent_unclear", "target_unclear", "time_unclear", "which_one", "integration_missing"]
      }
    },
    "plan": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "capability", "actionHint"],
        "properties": {
          "id": {"type": "string"},
          "capability": {"type": "string", "enum": ["calendar", "taskStore", "email", "memory", "general", "meta"]},
          "actionHint": {"type": "string"},
          "constraints": {"type": "object"},
          "changes": {"type": "object"},
          "dependsOn": {"type": "array", "items": {"type": "string"}}
        }
      }
    }
  }
}`

// resolverOutputSchemaJSON mirrors ResolverOutput: stepId, type, args
// (with the required "operation" discriminator), entityType.
const resolverOutputSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["stepId", "type", "args"],
  "properties": {
    "stepId": {"type": "string"},
    "type": {"type": "string", "enum": ["execute", "needsEntityResolution"]},
    "entityType": {"type": "string"},
    "args": {
      "type": "object",
      "required": ["operation"],
      "properties": {
        "operation": {"type": "string"}
      }
    }
  }
}`

var registry = map[Name]string{
	PlanOutputSchema:     planOutputSchemaJSON,
	ResolverOutputSchema: resolverOutputSchemaJSON,
}

var compiled = map[Name]*jsonschema.Schema{}

func init() {
	for name, raw := range registry {
		schema, err := compile(string(name), raw)
		if err != nil {
			panic(fmt.Sprintf("contracts: invalid builtin schema %q: %v", name, err))
		}
		compiled[name] = schema
	}
}

func compile(resourceName, schemaJSON string) (*jsonschema.Schema, error) {
	var schemaDoc any
	if err := json.Unmarshal([]byte(schemaJSON), &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(resourceName+".json", schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	return c.Compile(resourceName + ".json")
}

// Validate decodes raw as JSON and validates it against the named
// schema, returning the decoded document on success.
func Validate(name Name, raw []byte) (map[string]any, error) {
	schema, ok := compiled[name]
	if !ok {
		return nil, fmt.Errorf("contracts: unknown schema %q", name)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}

	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	parsed, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("contracts: payload is not a JSON object")
	}
	return parsed, nil
}

// RegisterSchema adds or overrides a named schema at runtime. Used by
// Resolvers to register their per-capability "slice" schema alongside
// the two built-ins.
func RegisterSchema(name Name, schemaJSON string) error {
	schema, err := compile(string(name), schemaJSON)
	if err != nil {
		return err
	}
	registry[name] = schemaJSON
	compiled[name] = schema
	return nil
}
