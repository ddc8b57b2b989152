package resolvers

import (
	"context"
	"fmt"

	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

// fallbackFunc builds a deterministic ResolverOutput by keyword
// inference, used when the LLM call fails or the completion doesn't
// validate against the capability's schema.
type fallbackFunc func(step planner.PlanStep, rctx ResolveContext) ResolverOutput

// llmResolver is the shared implementation backing every capability:
// one LLM call in JSON mode validated against a capability-specific
// schema ("slice"), with a deterministic fallback on failure. Each
// capability configures it with its own prompt, schema, and fallback —
// composition, not a base class.
type llmResolver struct {
	capability   string
	actions      []string
	entityType   string
	entityOps    map[string]bool // operations the matching EntityResolver must search for
	schema       contracts.Name
	systemPrompt string
	gateway      llmgateway.Gateway
	model        string
	temperature  float64
	maxTokens    int
	fallback     fallbackFunc
}

func (r *llmResolver) Capability() string          { return r.capability }
func (r *llmResolver) SupportedActions() []string  { return r.actions }

func (r *llmResolver) Resolve(ctx context.Context, step planner.PlanStep, rctx ResolveContext) (ResolverOutput, error) {
	out, err := r.resolveWithLLM(ctx, step, rctx)
	if err != nil {
		out = r.fallback(step, rctx)
	}
	out.StepID = step.ID
	if out.EntityType == "" {
		out.EntityType = r.entityType
	}
	if out.Args == nil {
		out.Args = map[string]any{}
	}
	out.Args["_entityType"] = out.EntityType
	return out, nil
}

func (r *llmResolver) resolveWithLLM(ctx context.Context, step planner.PlanStep, rctx ResolveContext) (ResolverOutput, error) {
	if r.gateway == nil {
		return ResolverOutput{}, fmt.Errorf("resolvers: no gateway configured for %s", r.capability)
	}

	messages := []llmgateway.Message{
		{Role: "system", Content: r.systemPrompt},
		{Role: "user", Content: buildUserPrompt(step, rctx)},
	}

	doc, err := r.gateway.CompleteJSON(ctx, llmgateway.CompleteRequest{
		Messages:    messages,
		Model:       r.model,
		Temperature: r.temperature,
		MaxTokens:   r.maxTokens,
	}, r.schema)
	if err != nil {
		return ResolverOutput{}, err
	}

	return r.decodeDoc(doc), nil
}

func buildUserPrompt(step planner.PlanStep, rctx ResolveContext) string {
	prompt := rctx.Now.Prompt() + "\n"
	prompt += "Action hint: " + step.ActionHint + "\n"
	prompt += "Message: " + step.Constraints.RawMessage
	for _, msg := range rctx.RecentMessages {
		prompt += "\nContext: " + msg
	}
	return prompt
}

// decodeDoc turns the flat, schema-validated completion document
// straight into ResolverOutput.Args — the schema IS the operation's
// argument shape, there is no separate "args" envelope. Whether the
// step still needs entity resolution is decided per capability by
// entityOps, keyed on the operation the document names, not by
// anything the model itself returns.
func (r *llmResolver) decodeDoc(doc map[string]any) ResolverOutput {
	op, _ := doc["operation"].(string)
	resultType := TypeExecute
	if r.entityOps[op] {
		resultType = TypeNeedsEntityResolution
	}
	return ResolverOutput{Type: resultType, Args: doc}
}
