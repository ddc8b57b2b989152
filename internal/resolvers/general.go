package resolvers

import (
	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

const generalSchemaJSON = `{
  "type": "object",
  "required": ["operation"],
  "properties": {
    "operation": {"type": "string", "enum": ["respond"]},
    "reply": {"type": "string"}
  }
}`

// NewGeneral builds the general-chat capability Resolver: it never
// needs entity resolution, only a free-text reply.
func NewGeneral(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) Resolver {
	_ = contracts.RegisterSchema("resolver.general", generalSchemaJSON)
	return &llmResolver{
		capability: "general",
		actions:    []string{"respond"},
		entityType: "",
		schema:     "resolver.general",
		systemPrompt: "You are the general conversational fallback. Respond with JSON: " +
			"{operation: \"respond\", reply}. Keep the reply short and in the user's language.",
		gateway:     gateway,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		fallback:    generalFallback,
	}
}

func generalFallback(step planner.PlanStep, rctx ResolveContext) ResolverOutput {
	return ResolverOutput{
		Type: TypeExecute,
		Args: map[string]any{
			"operation": "respond",
			"reply":     "Sorry, I didn't quite catch that — could you rephrase?",
		},
	}
}
