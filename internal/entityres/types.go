// Package entityres bridges a Resolver's natural-language references
// ("the meeting with Dan tomorrow") to concrete backend entity ids, one
// type per domain (calendar, taskStore, email, memory) sharing the
// internal/fuzzy scorer. Grounded on the same "deterministic, no LLM"
// shape the teacher's internal/routing package already follows, and
// registered in a capability-keyed Registry the same way
// internal/resolvers is.
package entityres

import (
	"context"
	"time"
)

// ResolutionCandidate is one scored entity surfaced to the caller —
// either for direct resolution or for a disambiguation prompt.
type ResolutionCandidate struct {
	ID          string
	DisplayText string
	Entity      any
	Score       float64
	Metadata    CandidateMetadata
}

// CandidateMetadata carries the optional recurring-series and
// time-window facts a candidate can expose.
type CandidateMetadata struct {
	IsRecurring       bool
	RecurringSeriesID string
	IsRecurringSeries bool
	Start             time.Time
	End               time.Time
}

// ResolutionKind discriminates the ResolutionOutput tagged union.
type ResolutionKind string

const (
	KindResolved       ResolutionKind = "resolved"
	KindDisambiguation ResolutionKind = "disambiguation"
	KindNotFound       ResolutionKind = "notFound"
	KindClarifyQuery   ResolutionKind = "clarifyQuery"
)

// ResolutionOutput is the tagged union an EntityResolver emits.
type ResolutionOutput struct {
	Kind ResolutionKind

	// Resolved
	ResolvedIDs []string
	Args        map[string]any
	IsRecurring bool
	SeriesID    string

	// Disambiguation
	Candidates    []ResolutionCandidate
	Question      string
	AllowMultiple bool

	// NotFound / ClarifyQuery
	Error        string
	SearchedFor  string
	Suggestions  []string
}

// ResolveContext carries the per-turn facts an EntityResolver needs
// beyond operation/args — deliberately independent of
// orchestrator.PipelineState to avoid an import cycle, the same
// decision internal/resolvers.ResolveContext makes.
type ResolveContext struct {
	Language string
	UserID   string
	Now      time.Time
}

// EntityResolver is the per-domain entity resolution stage.
type EntityResolver interface {
	Domain() string
	Resolve(ctx context.Context, operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error)
	// ApplySelection re-applies a user's disambiguation reply against
	// the candidates a prior Resolve call surfaced.
	ApplySelection(selection any, candidates []ResolutionCandidate, args map[string]any) ResolutionOutput
}

// Registry looks up an EntityResolver by domain.
type Registry struct {
	resolvers map[string]EntityResolver
}

// NewRegistry builds a Registry from the given resolvers, keyed by
// their own Domain().
func NewRegistry(resolvers ...EntityResolver) *Registry {
	r := &Registry{resolvers: make(map[string]EntityResolver, len(resolvers))}
	for _, res := range resolvers {
		r.resolvers[res.Domain()] = res
	}
	return r
}

// Get returns the EntityResolver for domain, or false if none is
// registered.
func (r *Registry) Get(domain string) (EntityResolver, bool) {
	res, ok := r.resolvers[domain]
	return res, ok
}
