// Package resolvers implements the per-capability translation of a
// PlanStep into a typed, structured operation: one value per
// capability (calendar, taskStore, email, memory, general, meta),
// each implementing the shared Resolver interface — interface +
// composition per the design notes, not an inheritance hierarchy.
// Grounded on how the teacher registers its Telegram commands in a
// flat table (botCommands) and dispatches by lookup, generalized here
// to a capability-keyed Registry with an injected llmgateway.Gateway,
// the same way internal/llm.Client is injected into DialogService.
package resolvers

import (
	"context"

	"convoassist/internal/planner"
	"convoassist/internal/timectx"
)

// ResolverOutput is the typed result of translating one PlanStep.
type ResolverOutput struct {
	StepID     string
	Type       OutputType
	Args       map[string]any
	EntityType string
}

// OutputType discriminates whether the output is ready to execute or
// still needs entity resolution against a live backend.
type OutputType string

const (
	TypeExecute               OutputType = "execute"
	TypeNeedsEntityResolution OutputType = "needsEntityResolution"
)

// ResolveContext carries the per-turn context a Resolver needs beyond
// the PlanStep itself. It intentionally does not reference the
// orchestrator's PipelineState type to avoid an import cycle —
// Resolvers are pure with respect to pipeline state, consuming only
// what they're handed.
type ResolveContext struct {
	Language         string
	UserID           string
	Now              timectx.TimeContext
	RecentMessages   []string
	UserCapabilities map[string]bool
}

// Resolver is the per-capability translation stage.
type Resolver interface {
	Capability() string
	SupportedActions() []string
	Resolve(ctx context.Context, step planner.PlanStep, rctx ResolveContext) (ResolverOutput, error)
}

// Registry looks up a Resolver by capability name.
type Registry struct {
	resolvers map[string]Resolver
}

// NewRegistry builds a Registry from the given resolvers, keyed by
// their own Capability().
func NewRegistry(resolvers ...Resolver) *Registry {
	r := &Registry{resolvers: make(map[string]Resolver, len(resolvers))}
	for _, res := range resolvers {
		r.resolvers[res.Capability()] = res
	}
	return r
}

// Get returns the Resolver for capability, or false if none is
// registered — callers should coerce the step to "general" per the
// validation-violation error-handling rule.
func (r *Registry) Get(capability string) (Resolver, bool) {
	res, ok := r.resolvers[capability]
	return res, ok
}
