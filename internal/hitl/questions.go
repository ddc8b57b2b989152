package hitl

import (
	"context"
	"fmt"
	"strings"

	"convoassist/internal/llmgateway"
	"convoassist/internal/routing"
)

// QuestionContext carries everything the question-generation step may
// need beyond the HITLCheck itself.
type QuestionContext struct {
	Message        string
	Language       string
	RoutingHints   []routing.Hint
	RiskLevel      string
	ActionHint     string
	IsDeleteAction bool
}

// Gate generates the question text and option list for an
// HITLCheck that wants to interrupt. It never decides whether to
// interrupt — that's CheckPlan/CheckResolution's job — only how to ask.
type Gate struct {
	gateway     llmgateway.Gateway
	model       string
	temperature float64
	maxTokens   int
}

// New builds a Gate. gateway may be nil, in which case every question
// is generated by the rule-based fallback.
func New(gateway llmgateway.Gateway, model string, temperature float64, maxTokens int) *Gate {
	return &Gate{gateway: gateway, model: model, temperature: temperature, maxTokens: maxTokens}
}

// Build turns a HITLCheck into the InterruptPayload the Orchestrator
// hands back to the transport.
func (g *Gate) Build(ctx context.Context, check HITLCheck, qctx QuestionContext) InterruptPayload {
	var question string
	var options []string

	switch check.Reason {
	case ReasonClarification, ReasonIntentUnclear:
		question = g.clarificationQuestion(ctx, check, qctx)
	case ReasonConfirmation:
		question = confirmationTemplate(qctx)
	case ReasonApproval:
		question = approvalTemplate(qctx)
	case ReasonDisambiguation:
		question, options = disambiguationQuestion(check, qctx.Language)
	}

	return InterruptPayload{
		Type:     check.Reason,
		Question: question,
		Options:  options,
		Metadata: InterruptMetadata{
			StepID:     check.StepID,
			EntityType: check.EntityType,
			Candidates: check.Candidates,
		},
	}
}

// clarificationQuestion tries one free-text LLM call producing a short,
// friendly, locale-matched message, falling back to a rule-based
// template if the gateway is unset, errors, or returns empty text.
func (g *Gate) clarificationQuestion(ctx context.Context, check HITLCheck, qctx QuestionContext) string {
	if g.gateway != nil {
		if reply, err := g.gateway.Complete(ctx, llmgateway.CompleteRequest{
			Messages: []llmgateway.Message{
				{Role: "system", Content: clarificationSystemPrompt},
				{Role: "user", Content: clarificationUserPrompt(check, qctx)},
			},
			Model:       g.model,
			Temperature: g.temperature,
			MaxTokens:   g.maxTokens,
		}); err == nil {
			if trimmed := strings.TrimSpace(reply); trimmed != "" {
				return trimmed
			}
		}
	}
	return clarificationFallback(qctx)
}

const clarificationSystemPrompt = "You write one short, friendly clarifying question in the user's own language. " +
	"Never mention internal system names, resolvers, or capability codes — only human-friendly topics."

func clarificationUserPrompt(check HITLCheck, qctx QuestionContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User said: %q\n", qctx.Message)
	fmt.Fprintf(&b, "Language: %s\n", qctx.Language)
	if len(qctx.RoutingHints) > 0 {
		b.WriteString("I think this is about: ")
		for i, h := range qctx.RoutingHints {
			if i >= 3 {
				break
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(routing.Label(h.Capability))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Missing: %v\n", check.MissingFields)
	if check.Details != "" {
		fmt.Fprintf(&b, "Detail: %s\n", check.Details)
	}
	b.WriteString("Ask one short clarifying question.")
	return b.String()
}

func clarificationFallback(qctx QuestionContext) string {
	if qctx.Language == "he" {
		return "לא הבנתי לגמרי, תוכל לנסח מחדש?"
	}
	return "I didn't quite catch that — could you tell me more?"
}

func confirmationTemplate(qctx QuestionContext) string {
	if qctx.IsDeleteAction {
		if qctx.Language == "he" {
			return "לבטל את זה לצמיתות? אי אפשר לשחזר."
		}
		return "Just to confirm — you want this deleted for good?"
	}
	if qctx.Language == "he" {
		return "לאשר את הפעולה הזו?"
	}
	return "Shall I go ahead with that?"
}

func approvalTemplate(qctx QuestionContext) string {
	if qctx.Language == "he" {
		return "זו פעולה משמעותית — לאשר?"
	}
	return "This is a bigger change — do you approve?"
}

// disambiguationQuestion renders a numbered list of candidate display
// text plus a locale-appropriate "both/all" hint when multi-select is
// allowed.
func disambiguationQuestion(check HITLCheck, language string) (string, []string) {
	options := make([]string, 0, len(check.Candidates))
	var b strings.Builder
	if language == "he" {
		b.WriteString("איזה מהם?\n")
	} else {
		b.WriteString("Which one did you mean?\n")
	}
	for i, c := range check.Candidates {
		label := c.DisplayText
		fmt.Fprintf(&b, "%d. %s\n", i+1, label)
		options = append(options, label)
	}
	if check.AllowMultiple {
		if language == "he" {
			b.WriteString("(אפשר גם \"הכל\")")
		} else {
			b.WriteString("(or say \"all\")")
		}
	}
	return strings.TrimSpace(b.String()), options
}
