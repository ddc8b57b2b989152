// Package hitl implements the human-in-the-loop gate: the pre-execution
// decision table that decides whether a turn must pause for the user,
// locale-aware question generation (LLM-assisted with a rule-based
// fallback, mirroring internal/planner's "try the LLM, degrade
// deterministically" shape), and resume-reply parsing. Persistence of
// the pending question into internal/convo and into the checkpointed
// pipeline state is the Orchestrator's job — this package stays free of
// an internal/orchestrator import to avoid a cycle, the same boundary
// internal/resolvers and internal/entityres draw for PipelineState.
package hitl

import (
	"time"

	"convoassist/internal/entityres"
	"convoassist/internal/planner"
)

// Reason is why a turn is being interrupted.
type Reason string

const (
	ReasonIntentUnclear  Reason = "intent_unclear"
	ReasonClarification  Reason = "clarification"
	ReasonConfirmation   Reason = "confirmation"
	ReasonApproval       Reason = "approval"
	ReasonDisambiguation Reason = "disambiguation"
)

// ReturnTo directs the Orchestrator where to resume after the user
// replies — only populated for intent_unclear, which re-enters the
// Planner rather than continuing step execution.
type ReturnTo struct {
	Node string
	Mode string
}

// HITLCheck is the decision-table outcome for one gate evaluation.
type HITLCheck struct {
	ShouldInterrupt bool
	Reason          Reason
	Details         string
	MissingFields   []planner.MissingField
	Candidates      []entityres.ResolutionCandidate
	AllowMultiple   bool
	StepID          string
	EntityType      string
	ReturnTo        *ReturnTo
}

// InterruptPayload is what the pipeline hands back to the transport
// when a turn suspends.
type InterruptPayload struct {
	Type     Reason
	Question string
	Options  []string
	Metadata InterruptMetadata
}

// InterruptMetadata carries the bookkeeping the Orchestrator needs to
// resume at the right point.
type InterruptMetadata struct {
	StepID        string
	EntityType    string
	Candidates    []entityres.ResolutionCandidate
	InterruptedAt time.Time
}
