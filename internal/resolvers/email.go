package resolvers

import (
	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

const emailSchemaJSON = `{
  "type": "object",
  "required": ["operation"],
  "properties": {
    "operation": {"type": "string", "enum": ["create", "send"]},
    "to": {"type": "array", "items": {"type": "string"}},
    "subject": {"type": "string"},
    "body": {"type": "string"}
  }
}`

// NewEmail builds the email capability Resolver.
func NewEmail(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) Resolver {
	_ = contracts.RegisterSchema("resolver.email", emailSchemaJSON)
	return &llmResolver{
		capability: "email",
		actions:    []string{"create", "send"},
		entityType: "emailDraft",
		entityOps:  map[string]bool{"send": true},
		schema:     "resolver.email",
		systemPrompt: "You translate an email plan step into a structured operation. " +
			"Respond with JSON: {operation, to?, subject?, body?}. Never invent a recipient address " +
			"the user did not provide or that isn't already known.",
		gateway:     gateway,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		fallback:    emailFallback,
	}
}

func emailFallback(step planner.PlanStep, rctx ResolveContext) ResolverOutput {
	return ResolverOutput{
		Type: TypeExecute,
		Args: map[string]any{
			"operation": "create",
			"subject":   step.Constraints.RawMessage,
			"body":      step.Constraints.RawMessage,
		},
	}
}
