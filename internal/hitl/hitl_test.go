package hitl

import (
	"context"
	"errors"
	"testing"

	"convoassist/internal/contracts"
	"convoassist/internal/entityres"
	"convoassist/internal/llmgateway"
	"convoassist/internal/planner"
)

type stubGateway struct {
	reply string
	err   error
}

func (s stubGateway) Complete(ctx context.Context, req llmgateway.CompleteRequest) (string, error) {
	return s.reply, s.err
}

func (s stubGateway) CompleteJSON(ctx context.Context, req llmgateway.CompleteRequest, schema contracts.Name) (map[string]any, error) {
	return nil, errors.New("not used")
}

func TestCheckPlanIntentUnclearTakesPriority(t *testing.T) {
	out := planner.PlanOutput{
		Confidence:    0.9,
		MissingFields: []planner.MissingField{planner.MissingIntentUnclear},
	}
	check := CheckPlan(out, 0.7)
	if !check.ShouldInterrupt || check.Reason != ReasonIntentUnclear {
		t.Fatalf("expected intent_unclear interrupt, got %+v", check)
	}
	if check.ReturnTo == nil || check.ReturnTo.Node != "planner" || check.ReturnTo.Mode != "replan" {
		t.Fatalf("expected replan returnTo, got %+v", check.ReturnTo)
	}
}

func TestCheckPlanLowConfidenceInterrupts(t *testing.T) {
	out := planner.PlanOutput{Confidence: 0.5}
	check := CheckPlan(out, 0.7)
	if !check.ShouldInterrupt || check.Reason != ReasonClarification {
		t.Fatalf("expected clarification interrupt, got %+v", check)
	}
}

func TestCheckPlanHighRiskInterruptsAsConfirmation(t *testing.T) {
	out := planner.PlanOutput{Confidence: 0.9, RiskLevel: planner.RiskHigh}
	check := CheckPlan(out, 0.7)
	if !check.ShouldInterrupt || check.Reason != ReasonConfirmation {
		t.Fatalf("expected confirmation interrupt, got %+v", check)
	}
}

func TestCheckPlanNeedsApprovalInterrupts(t *testing.T) {
	out := planner.PlanOutput{Confidence: 0.9, RiskLevel: planner.RiskLow, NeedsApproval: true}
	check := CheckPlan(out, 0.7)
	if !check.ShouldInterrupt || check.Reason != ReasonApproval {
		t.Fatalf("expected approval interrupt, got %+v", check)
	}
}

func TestCheckPlanClearPlanDoesNotInterrupt(t *testing.T) {
	out := planner.PlanOutput{Confidence: 0.95, RiskLevel: planner.RiskLow}
	check := CheckPlan(out, 0.7)
	if check.ShouldInterrupt {
		t.Fatalf("expected no interrupt, got %+v", check)
	}
}

func TestCheckResolutionDisambiguationInterrupts(t *testing.T) {
	res := entityres.ResolutionOutput{Kind: entityres.KindDisambiguation, Candidates: []entityres.ResolutionCandidate{{ID: "1"}, {ID: "2"}}}
	check := CheckResolution(res, "A", "calendarEvent")
	if !check.ShouldInterrupt || check.Reason != ReasonDisambiguation {
		t.Fatalf("expected disambiguation interrupt, got %+v", check)
	}
	if len(check.Candidates) != 2 {
		t.Fatalf("expected candidates carried through, got %v", check.Candidates)
	}
}

func TestCheckResolutionNotFoundInterruptsAsClarification(t *testing.T) {
	res := entityres.ResolutionOutput{Kind: entityres.KindNotFound, Error: "service unavailable"}
	check := CheckResolution(res, "A", "task")
	if !check.ShouldInterrupt || check.Reason != ReasonClarification {
		t.Fatalf("expected clarification interrupt, got %+v", check)
	}
}

func TestCheckResolutionResolvedNeverInterrupts(t *testing.T) {
	res := entityres.ResolutionOutput{Kind: entityres.KindResolved, ResolvedIDs: []string{"1"}}
	check := CheckResolution(res, "A", "task")
	if check.ShouldInterrupt {
		t.Fatalf("expected no interrupt, got %+v", check)
	}
}

func TestGateBuildDisambiguationRendersNumberedOptions(t *testing.T) {
	g := New(nil, "", 0, 0)
	check := HITLCheck{
		Reason: ReasonDisambiguation,
		Candidates: []entityres.ResolutionCandidate{
			{ID: "1", DisplayText: "Dentist at 3pm"},
			{ID: "2", DisplayText: "Dentist at 5pm"},
		},
	}
	payload := g.Build(context.Background(), check, QuestionContext{Language: "en"})
	if len(payload.Options) != 2 {
		t.Fatalf("expected two options, got %v", payload.Options)
	}
	if payload.Type != ReasonDisambiguation {
		t.Fatalf("expected disambiguation type, got %v", payload.Type)
	}
}

func TestGateBuildClarificationFallsBackWhenGatewayErrors(t *testing.T) {
	g := New(stubGateway{err: errors.New("boom")}, "m", 0.3, 100)
	check := HITLCheck{Reason: ReasonClarification}
	payload := g.Build(context.Background(), check, QuestionContext{Language: "en", Message: "do the thing"})
	if payload.Question == "" {
		t.Fatal("expected a non-empty fallback question")
	}
}

func TestGateBuildClarificationUsesLLMReplyWhenAvailable(t *testing.T) {
	g := New(stubGateway{reply: "Which event do you mean?"}, "m", 0.3, 100)
	check := HITLCheck{Reason: ReasonClarification}
	payload := g.Build(context.Background(), check, QuestionContext{Language: "en", Message: "cancel it"})
	if payload.Question != "Which event do you mean?" {
		t.Fatalf("expected LLM reply verbatim, got %q", payload.Question)
	}
}

func TestGateBuildConfirmationUsesDeleteWording(t *testing.T) {
	g := New(nil, "", 0, 0)
	check := HITLCheck{Reason: ReasonConfirmation}
	payload := g.Build(context.Background(), check, QuestionContext{Language: "en", IsDeleteAction: true})
	if payload.Question == "" {
		t.Fatal("expected a non-empty confirmation question")
	}
}

func TestParseYesNoRecognizesBilingualTokens(t *testing.T) {
	if v, ok := ParseYesNo("yes"); !v || !ok {
		t.Fatalf("expected yes recognized, got %v %v", v, ok)
	}
	if v, ok := ParseYesNo("לא"); v || !ok {
		t.Fatalf("expected Hebrew no recognized, got %v %v", v, ok)
	}
	if _, ok := ParseYesNo("maybe later"); ok {
		t.Fatal("expected unrecognized text to not be classified")
	}
}

func TestParseDisambiguationSelectionSingleNumber(t *testing.T) {
	sel := ParseDisambiguationSelection(" 2 ")
	if sel != "2" {
		t.Fatalf("expected trimmed string \"2\", got %v", sel)
	}
}

func TestParseDisambiguationSelectionMultiSelect(t *testing.T) {
	sel := ParseDisambiguationSelection("1, 3")
	list, ok := sel.([]any)
	if !ok || len(list) != 2 {
		t.Fatalf("expected a two-element slice, got %v", sel)
	}
}
