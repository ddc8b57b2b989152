package resolvers

import (
	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

const memorySchemaJSON = `{
  "type": "object",
  "required": ["operation"],
  "properties": {
    "operation": {"type": "string", "enum": ["create", "delete", "get"]},
    "text": {"type": "string"},
    "tags": {"type": "array", "items": {"type": "string"}}
  }
}`

// NewMemory builds the memory-notes capability Resolver. It is named
// distinctly from internal/convo's conversational memory, which it has
// no relation to.
func NewMemory(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) Resolver {
	_ = contracts.RegisterSchema("resolver.memory", memorySchemaJSON)
	return &llmResolver{
		capability: "memory",
		actions:    []string{"create", "delete", "get"},
		entityType: "memoryNote",
		entityOps:  map[string]bool{"delete": true},
		schema:     "resolver.memory",
		systemPrompt: "You translate a memory/note plan step into a structured operation. " +
			"Respond with JSON: {operation, text?, tags?}.",
		gateway:     gateway,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		fallback:    memoryFallback,
	}
}

func memoryFallback(step planner.PlanStep, rctx ResolveContext) ResolverOutput {
	return ResolverOutput{
		Type: TypeExecute,
		Args: map[string]any{
			"operation": "create",
			"text":      step.Constraints.RawMessage,
		},
	}
}
