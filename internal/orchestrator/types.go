// Package orchestrator drives one conversational turn end to end:
// Planner, pre-execution HITLGate, topological step execution against
// Resolvers/EntityResolvers, and the checkpoint contract that lets a
// turn suspend on an interrupt and resume from the exact point it left
// off. PipelineState is the single object that contract revolves
// around — checkpointed verbatim on interrupt, rehydrated verbatim on
// resume.
package orchestrator

import (
	"context"
	"time"

	"convoassist/internal/entityres"
	"convoassist/internal/executors"
	"convoassist/internal/hitl"
	"convoassist/internal/planner"
	"convoassist/internal/timectx"
)

// UserInfo is the turn's addressee, carried on PipelineState rather
// than looked up mid-turn so every stage sees a consistent snapshot.
type UserInfo struct {
	ID           string
	Phone        string
	Language     string
	Capabilities UserCapabilities
}

// UserCapabilities gates which domains a user may invoke, populated by
// the transport adapter from internal/capabilities before the turn
// starts.
type UserCapabilities struct {
	Calendar bool
	Email    bool
}

// InputInfo is the inbound turn's message, before and after any
// enhancement (e.g. a re-plan clarification folded back in).
type InputInfo struct {
	Message         string
	EnhancedMessage string
	RequestID       string
	ExternalID      string
}

// Disambiguation mirrors the candidate set shown to the user for a
// still-open "which one did you mean" prompt. Candidates are part of
// the checkpoint so ApplySelection is always run against the exact set
// the user saw. The Orchestrator does not set Resolved or
// UserSelection: once a reply is applied, the value is cleared or
// replaced by a new Disambiguation.
type Disambiguation struct {
	StepID        string
	Domain        string
	Operation     string
	Args          map[string]any
	Candidates    []entityres.ResolutionCandidate
	EntityType    string
	AllowMultiple bool
	ExpiresAt     time.Time
	Resolved      bool
	UserSelection any
}

// HITLResultEntry records one resume reply against an open interrupt,
// keyed by its origin (a step id, or "plan" for a plan-level
// interrupt).
type HITLResultEntry struct {
	Raw      string
	Parsed   any
	ReturnTo *hitl.ReturnTo
}

// PipelineState is the checkpointed object: exclusively owned by the
// Orchestrator for the duration of a turn, serialized verbatim on
// interrupt, rehydrated verbatim on resume.
type PipelineState struct {
	TurnID string
	User   UserInfo
	Input  InputInfo

	Now             timectx.TimeContext
	RecentMessages  []string
	LongTermSummary string

	PlannerOutput       *planner.PlanOutput
	RoutingSuggestions  []string
	PlannerHITLResponse string

	Disambiguation *Disambiguation

	NeedsHITL   bool
	HITLReason  hitl.Reason
	HITLType    string
	HITLResults map[string]HITLResultEntry
	InterruptedAt *time.Time
	PendingStepID string

	PerStepResults map[string]executors.Result

	Error string
}

// newState builds the fresh-turn skeleton; Plan/HITL/step-execution
// fields are populated as the turn progresses.
func newState(turnID string, user UserInfo, input InputInfo, now timectx.TimeContext) *PipelineState {
	return &PipelineState{
		TurnID:         turnID,
		User:           user,
		Input:          input,
		Now:            now,
		HITLResults:    make(map[string]HITLResultEntry),
		PerStepResults: make(map[string]executors.Result),
	}
}

// CheckpointStore persists a suspended PipelineState keyed by user, so
// a later inbound message from the same user can resume it. Pluggable
// per spec: MemoryCheckpointStore is the default, RedisCheckpointStore
// backs multi-instance deployments.
type CheckpointStore interface {
	Save(ctx context.Context, userID string, state PipelineState, ttl time.Duration) error
	Load(ctx context.Context, userID string) (PipelineState, bool, error)
	Clear(ctx context.Context, userID string) error
}

// ExecutorSet bundles the four domain executors the step-execution
// loop dispatches resolved operations to.
type ExecutorSet struct {
	Calendar  executors.CalendarExecutor
	TaskStore executors.TaskStoreExecutor
	Email     executors.EmailExecutor
	Memory    executors.MemoryExecutor
}
