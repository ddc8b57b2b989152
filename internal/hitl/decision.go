package hitl

import (
	"convoassist/internal/entityres"
	"convoassist/internal/planner"
)

// CheckPlan applies the pre-execution decision table to a PlanOutput,
// in the documented priority order: intent_unclear first (it redirects
// to a replan rather than a plain clarification), then low confidence,
// then any other missing field, then high risk, then needsApproval.
func CheckPlan(out planner.PlanOutput, confidenceThreshold float64) HITLCheck {
	if out.HasMissingField(planner.MissingIntentUnclear) {
		return HITLCheck{
			ShouldInterrupt: true,
			Reason:          ReasonIntentUnclear,
			MissingFields:   out.MissingFields,
			ReturnTo:        &ReturnTo{Node: "planner", Mode: "replan"},
		}
	}

	if out.Confidence < confidenceThreshold {
		return HITLCheck{ShouldInterrupt: true, Reason: ReasonClarification, MissingFields: out.MissingFields}
	}

	if len(out.MissingFields) > 0 {
		return HITLCheck{ShouldInterrupt: true, Reason: ReasonClarification, MissingFields: out.MissingFields}
	}

	if out.RiskLevel == planner.RiskHigh {
		return HITLCheck{ShouldInterrupt: true, Reason: ReasonConfirmation}
	}

	if out.NeedsApproval {
		return HITLCheck{ShouldInterrupt: true, Reason: ReasonApproval}
	}

	return HITLCheck{ShouldInterrupt: false}
}

// CheckResolution applies the decision table's EntityResolver rows: a
// Disambiguation interrupts for the user's selection, NotFound/
// ClarifyQuery interrupt for a plain clarification, and Resolved never
// interrupts.
func CheckResolution(out entityres.ResolutionOutput, stepID, entityType string) HITLCheck {
	switch out.Kind {
	case entityres.KindDisambiguation:
		return HITLCheck{
			ShouldInterrupt: true,
			Reason:          ReasonDisambiguation,
			Candidates:      out.Candidates,
			AllowMultiple:   out.AllowMultiple,
			StepID:          stepID,
			EntityType:      entityType,
		}
	case entityres.KindNotFound, entityres.KindClarifyQuery:
		return HITLCheck{
			ShouldInterrupt: true,
			Reason:          ReasonClarification,
			Details:         out.Error,
			StepID:          stepID,
			EntityType:      entityType,
		}
	default:
		return HITLCheck{ShouldInterrupt: false}
	}
}
