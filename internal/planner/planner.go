// Package planner turns an inbound turn into an ordered PlanOutput:
// one LLM call validated against internal/contracts' PlanOutput
// schema, falling back to a deterministic plan built from routing
// hints and keyword risk inference when the call fails or the
// completion doesn't validate — mirroring the teacher's
// DialogService fallback pattern (doLLMRequest / CreatePlan) of
// "try the LLM, degrade to something deterministic rather than fail
// the turn".
package planner

import (
	"context"
	"fmt"

	"convoassist/internal/contracts"
	"convoassist/internal/llmgateway"
	"convoassist/internal/routing"
	"convoassist/internal/timectx"
)

// Input carries everything the Planner needs for one turn.
type Input struct {
	EnhancedMessage     string
	Now                 timectx.TimeContext
	RecentMessages      []string
	UserCapabilities    map[string]bool
	RoutingHints        []routing.Hint
	ReplanClarification string // non-empty when resuming after intent_unclear
	Language            string
}

// Planner is the pipeline's intent-decomposition stage.
type Planner struct {
	gateway     llmgateway.Gateway
	model       string
	temperature float64
	maxTokens   int
}

// New builds a Planner backed by gateway, using model/temperature/
// maxTokens as the LLM call's parameters (see config.PipelineConfig).
func New(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) *Planner {
	return &Planner{gateway: gateway, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Plan produces a validated PlanOutput for in.
func (p *Planner) Plan(ctx context.Context, in Input) PlanOutput {
	out, err := p.planWithLLM(ctx, in)
	if err != nil {
		out = fallbackPlan(in)
	}
	return normalize(out, in)
}

func (p *Planner) planWithLLM(ctx context.Context, in Input) (PlanOutput, error) {
	if p.gateway == nil {
		return PlanOutput{}, fmt.Errorf("planner: no gateway configured")
	}

	messages := []llmgateway.Message{
		{Role: "system", Content: systemPrompt()},
		{Role: "user", Content: buildUserPrompt(in)},
	}

	doc, err := p.gateway.CompleteJSON(ctx, llmgateway.CompleteRequest{
		Messages:    messages,
		Model:       p.model,
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
	}, contracts.PlanOutputSchema)
	if err != nil {
		return PlanOutput{}, err
	}

	return decode(doc), nil
}

func systemPrompt() string {
	return "You are the planning stage of a conversational assistant. " +
		"Decompose the user's message into an ordered list of capability steps. " +
		"Respond only with a JSON object matching the PlanOutput contract: " +
		"intentType, confidence, riskLevel, needsApproval, missingFields, plan. " +
		"Group a list of same-operation items into one step; split different operations " +
		"or different capabilities into separate steps. Only set dependsOn when a step " +
		"needs a prior step's result."
}

func buildUserPrompt(in Input) string {
	prompt := in.Now.Prompt() + "\n"
	if in.ReplanClarification != "" {
		prompt += "Clarification from the user: " + in.ReplanClarification + "\n"
	}
	prompt += "Message: " + in.EnhancedMessage
	return prompt
}

func decode(doc map[string]any) PlanOutput {
	out := PlanOutput{
		IntentType: IntentType(asString(doc["intentType"])),
		Confidence: asFloat(doc["confidence"]),
		RiskLevel:  RiskLevel(asString(doc["riskLevel"])),
	}
	if b, ok := doc["needsApproval"].(bool); ok {
		out.NeedsApproval = b
	}
	for _, f := range asSlice(doc["missingFields"]) {
		out.MissingFields = append(out.MissingFields, MissingField(asString(f)))
	}
	for _, rawStep := range asSlice(doc["plan"]) {
		stepDoc, ok := rawStep.(map[string]any)
		if !ok {
			continue
		}
		step := PlanStep{
			ID:         asString(stepDoc["id"]),
			Capability: asString(stepDoc["capability"]),
			ActionHint: asString(stepDoc["actionHint"]),
		}
		if constraints, ok := stepDoc["constraints"].(map[string]any); ok {
			step.Constraints.RawMessage = asString(constraints["rawMessage"])
			if extracted, ok := constraints["extractedInfo"].(map[string]any); ok {
				step.Constraints.ExtractedInfo = extracted
			}
		}
		if changes, ok := stepDoc["changes"].(map[string]any); ok {
			step.Changes = changes
		}
		for _, dep := range asSlice(stepDoc["dependsOn"]) {
			step.DependsOn = append(step.DependsOn, asString(dep))
		}
		out.Plan = append(out.Plan, step)
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// fallbackPlan builds a deterministic PlanOutput from routing hints and
// keyword risk inference, used when the LLM call fails or the
// completion doesn't validate. Confidence is fixed at 0.7 per the
// documented fallback contract.
func fallbackPlan(in Input) PlanOutput {
	message := in.EnhancedMessage
	if in.ReplanClarification != "" {
		message = in.ReplanClarification + " " + message
	}

	capability := routing.Top(message)
	risk := inferRisk(message)
	action := inferAction(message)

	var missing []MissingField
	if capability == routing.CapabilityGeneral {
		missing = append(missing, MissingIntentUnclear)
	}
	if targetUnclear(message) {
		missing = append(missing, MissingTargetUnclear)
	}

	intent := IntentOperation
	if capability == routing.CapabilityGeneral {
		intent = IntentConversation
	}

	step := PlanStep{
		ID:         "A",
		Capability: string(capability),
		ActionHint: action,
		Constraints: Constraints{
			RawMessage: in.EnhancedMessage,
		},
	}

	return PlanOutput{
		IntentType:    intent,
		Confidence:    0.7,
		RiskLevel:     risk,
		NeedsApproval: risk == RiskHigh,
		MissingFields: missing,
		Plan:          []PlanStep{step},
	}
}
