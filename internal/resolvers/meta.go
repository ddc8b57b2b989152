package resolvers

import (
	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

const metaSchemaJSON = `{
  "type": "object",
  "required": ["operation"],
  "properties": {
    "operation": {"type": "string", "enum": ["help", "setLanguage"]},
    "language": {"type": "string"}
  }
}`

// NewMeta builds the meta capability Resolver, handling assistant
// self-questions (help, language preference) rather than domain
// operations.
func NewMeta(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) Resolver {
	_ = contracts.RegisterSchema("resolver.meta", metaSchemaJSON)
	return &llmResolver{
		capability: "meta",
		actions:    []string{"help", "setLanguage"},
		entityType: "",
		schema:     "resolver.meta",
		systemPrompt: "You translate an assistant self-question into a structured operation. " +
			"Respond with JSON: {operation: \"help\"|\"setLanguage\", language?}.",
		gateway:     gateway,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		fallback:    metaFallback,
	}
}

func metaFallback(step planner.PlanStep, rctx ResolveContext) ResolverOutput {
	return ResolverOutput{
		Type: TypeExecute,
		Args: map[string]any{
			"operation": "help",
		},
	}
}
