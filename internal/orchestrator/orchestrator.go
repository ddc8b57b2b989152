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
	"fmt"
	"strings"
	"sync"
	"time"

	"convoassist/internal/chatapi"
	"convoassist/internal/convo"
	"convoassist/internal/entityres"
	"convoassist/internal/executors"
	"convoassist/internal/hitl"
	"convoassist/internal/planner"
	"convoassist/internal/resolvers"
	"convoassist/internal/routing"
	"convoassist/internal/timectx"
)

// Deps bundles everything a turn needs. Every field is a plain value
// or interface — no hidden process-level mutable state, per the
// design notes' "Resolver/EntityResolver code is pure with respect to
// PipelineState" rule extended to the Orchestrator's own collaborators.
type Deps struct {
	Memory     *convo.Memory
	Planner    *planner.Planner
	Resolvers  *resolvers.Registry
	EntityRes  *entityres.Registry
	HITL       *hitl.Gate
	Checkpoint CheckpointStore
	Executors  ExecutorSet
	Location   *time.Location

	ConfidenceThreshold float64
	InterruptTimeout    time.Duration
	CheckpointTTL       time.Duration
}

// Orchestrator is the pipeline's entry point: one HandleInbound call
// per inbound chat message, serialized per user by userLocks so a
// user's own turns never race each other over ConversationMemory or
// the checkpoint store.
type Orchestrator struct {
	deps  Deps
	locks *userLocks

	mu      sync.Mutex
	recent  map[string]chatapi.OutboundMessage // userID+":"+externalID -> last outbound, for idempotent re-delivery
}

// New builds an Orchestrator from deps.
func New(deps Deps) *Orchestrator {
	if deps.Location == nil {
		deps.Location = time.UTC
	}
	return &Orchestrator{
		deps:   deps,
		locks:  newUserLocks(),
		recent: make(map[string]chatapi.OutboundMessage),
	}
}

// HandleInbound is the pipeline's sole entry point: it decides whether
// the message starts a fresh turn or resumes a suspended one, drives
// the turn to completion or the next interrupt, and returns what the
// transport should send back.
func (o *Orchestrator) HandleInbound(ctx context.Context, in chatapi.InboundMessage) chatapi.OutboundMessage {
	unlock := o.locks.lock(in.UserID)
	defer unlock()

	if in.ExternalID != "" {
		if cached, ok := o.cached(in.UserID, in.ExternalID); ok {
			return cached
		}
	}

	now := time.Now().In(o.deps.Location)
	state, hasCheckpoint, _ := o.deps.Checkpoint.Load(ctx, in.UserID)

	var out chatapi.OutboundMessage
	if hasCheckpoint && state.InterruptedAt != nil && now.Sub(*state.InterruptedAt) <= o.deps.InterruptTimeout {
		out = o.resumeTurn(ctx, &state, in, now)
	} else {
		if hasCheckpoint {
			_ = o.deps.Checkpoint.Clear(ctx, in.UserID)
		}
		out = o.freshTurn(ctx, in, now)
	}

	if in.ExternalID != "" {
		o.cache(in.UserID, in.ExternalID, out)
	}
	return out
}

func (o *Orchestrator) cached(userID, externalID string) (chatapi.OutboundMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	out, ok := o.recent[userID+":"+externalID]
	return out, ok
}

func (o *Orchestrator) cache(userID, externalID string, out chatapi.OutboundMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recent[userID+":"+externalID] = out
}

// freshTurn starts a brand-new turn: append the inbound message,
// build TimeContext + routing hints, plan, run the pre-execution HITL
// gate, and — if nothing interrupts — drive step execution.
func (o *Orchestrator) freshTurn(ctx context.Context, in chatapi.InboundMessage, now time.Time) chatapi.OutboundMessage {
	o.deps.Memory.Append(in.UserID, convo.RoleUser, in.Text, convo.AppendOptions{
		ExternalID:        in.ExternalID,
		ReplyToExternalID: in.ReplyToExternalID,
	})

	tctx := timectx.New(now, o.deps.Location)
	recent := o.recentTexts(in.UserID)
	hints := routing.Hints(in.Text)

	state := newState(in.RequestID, UserInfo{
		ID:       in.UserID,
		Phone:    in.Phone,
		Language: in.Language,
		Capabilities: UserCapabilities{
			Calendar: in.CapabilityCalendar,
			Email:    in.CapabilityEmail,
		},
	}, InputInfo{
		Message:         in.Text,
		EnhancedMessage: in.Text,
		RequestID:       in.RequestID,
		ExternalID:      in.ExternalID,
	}, tctx)
	state.RecentMessages = recent
	state.RoutingSuggestions = hintLabels(hints)

	plan := o.deps.Planner.Plan(ctx, planner.Input{
		EnhancedMessage:  in.Text,
		Now:              tctx,
		RecentMessages:   recent,
		UserCapabilities: map[string]bool{"calendar": in.CapabilityCalendar, "email": in.CapabilityEmail},
		RoutingHints:     hints,
		Language:         in.Language,
	})
	state.PlannerOutput = &plan

	if check := hitl.CheckPlan(plan, o.deps.ConfidenceThreshold); check.ShouldInterrupt {
		return o.interrupt(ctx, state, check, hints, in.Language)
	}

	return o.runSteps(ctx, state, in.Language)
}

// resumeTurn rehydrates a checkpointed state and re-enters the gate
// at the exact point the turn suspended.
func (o *Orchestrator) resumeTurn(ctx context.Context, state *PipelineState, in chatapi.InboundMessage, now time.Time) chatapi.OutboundMessage {
	o.deps.Memory.Append(in.UserID, convo.RoleUser, in.Text, convo.AppendOptions{
		ExternalID:        in.ExternalID,
		ReplyToExternalID: in.ReplyToExternalID,
	})

	reason := state.HITLReason
	state.InterruptedAt = nil
	state.Error = ""

	switch reason {
	case hitl.ReasonDisambiguation:
		return o.resumeDisambiguation(ctx, state, in)
	case hitl.ReasonConfirmation, hitl.ReasonApproval:
		return o.resumeConfirmation(ctx, state, in, reason)
	case hitl.ReasonIntentUnclear:
		return o.resumeReplan(ctx, state, in)
	case hitl.ReasonClarification:
		if state.Disambiguation != nil && state.Disambiguation.StepID != "" {
			return o.resumeStepClarification(ctx, state, in)
		}
		return o.resumeReplan(ctx, state, in)
	default:
		// Unknown/unset reason on a stale checkpoint: treat as a fresh turn.
		return o.freshTurn(ctx, in, now)
	}
}

func (o *Orchestrator) resumeDisambiguation(ctx context.Context, state *PipelineState, in chatapi.InboundMessage) chatapi.OutboundMessage {
	disamb := state.Disambiguation
	if disamb == nil {
		return o.freshTurn(ctx, in, time.Now().In(o.deps.Location))
	}

	resolver, ok := o.deps.EntityRes.Get(disamb.Domain)
	if !ok {
		return o.fail(ctx, state, in.Language, "internal routing error")
	}

	selection := hitl.ParseDisambiguationSelection(in.Text)
	out := resolver.ApplySelection(selection, disamb.Candidates, disamb.Args)

	if out.Kind == entityres.KindDisambiguation {
		check := hitl.CheckResolution(out, disamb.StepID, disamb.EntityType)
		state.Disambiguation = &Disambiguation{
			StepID: disamb.StepID, Domain: disamb.Domain, Operation: disamb.Operation,
			Args: disamb.Args, Candidates: out.Candidates, EntityType: disamb.EntityType,
			AllowMultiple: out.AllowMultiple,
		}
		return o.interrupt(ctx, state, check, routing.Hints(in.Text), in.Language)
	}

	o.recordResolved(state, disamb.StepID, disamb.Domain, out)
	state.Disambiguation = nil
	return o.runSteps(ctx, state, in.Language)
}

func (o *Orchestrator) resumeStepClarification(ctx context.Context, state *PipelineState, in chatapi.InboundMessage) chatapi.OutboundMessage {
	disamb := state.Disambiguation
	resolver, ok := o.deps.EntityRes.Get(disamb.Domain)
	if !ok {
		return o.fail(ctx, state, in.Language, "internal routing error")
	}

	args := mergeClarificationReply(disamb.Domain, disamb.Args, in.Text)
	rctx := entityres.ResolveContext{Language: in.Language, UserID: state.User.ID, Now: state.Now.Now}
	out, err := resolver.Resolve(ctx, disamb.Operation, args, rctx)
	if err != nil {
		return o.fail(ctx, state, in.Language, "internal routing error")
	}

	if check := hitl.CheckResolution(out, disamb.StepID, disamb.EntityType); check.ShouldInterrupt {
		state.Disambiguation = &Disambiguation{
			StepID: disamb.StepID, Domain: disamb.Domain, Operation: disamb.Operation,
			Args: args, Candidates: out.Candidates, EntityType: disamb.EntityType,
			AllowMultiple: out.AllowMultiple,
		}
		return o.interrupt(ctx, state, check, routing.Hints(in.Text), in.Language)
	}

	o.recordResolved(state, disamb.StepID, disamb.Domain, out)
	state.Disambiguation = nil
	return o.runSteps(ctx, state, in.Language)
}

// mergeClarificationReply folds a clarification reply back into the
// operation args under the field each domain searches on.
func mergeClarificationReply(domain string, args map[string]any, reply string) map[string]any {
	out := make(map[string]any, len(args)+1)
	for k, v := range args {
		out[k] = v
	}
	switch domain {
	case "calendar":
		out["summary"] = reply
	default:
		out["text"] = reply
	}
	return out
}

func (o *Orchestrator) resumeConfirmation(ctx context.Context, state *PipelineState, in chatapi.InboundMessage, reason hitl.Reason) chatapi.OutboundMessage {
	yes, recognized := hitl.ParseYesNo(in.Text)
	if !recognized {
		check := hitl.HITLCheck{ShouldInterrupt: true, Reason: reason}
		return o.interrupt(ctx, state, check, routing.Hints(in.Text), in.Language)
	}
	if !yes {
		reply := "Okay, I won't do that."
		if in.Language == "he" {
			reply = "בסדר, לא אעשה את זה."
		}
		o.deps.Memory.Append(state.User.ID, convo.RoleAssistant, reply, convo.AppendOptions{})
		_ = o.deps.Checkpoint.Clear(ctx, state.User.ID)
		return chatapi.OutboundMessage{Kind: chatapi.OutboundReply, Reply: reply}
	}
	return o.runSteps(ctx, state, in.Language)
}

func (o *Orchestrator) resumeReplan(ctx context.Context, state *PipelineState, in chatapi.InboundMessage) chatapi.OutboundMessage {
	clarification := in.Text
	state.PlannerHITLResponse = clarification

	recent := o.recentTexts(state.User.ID)
	state.RecentMessages = recent
	hints := routing.Hints(clarification + " " + state.Input.Message)
	state.RoutingSuggestions = hintLabels(hints)

	plan := o.deps.Planner.Plan(ctx, planner.Input{
		EnhancedMessage:     state.Input.Message,
		Now:                 state.Now,
		RecentMessages:      recent,
		UserCapabilities:    map[string]bool{"calendar": state.User.Capabilities.Calendar, "email": state.User.Capabilities.Email},
		RoutingHints:        hints,
		ReplanClarification: clarification,
		Language:            in.Language,
	})
	state.PlannerOutput = &plan
	state.PerStepResults = make(map[string]executors.Result)
	state.Disambiguation = nil

	if check := hitl.CheckPlan(plan, o.deps.ConfidenceThreshold); check.ShouldInterrupt {
		return o.interrupt(ctx, state, check, hints, in.Language)
	}
	return o.runSteps(ctx, state, in.Language)
}

func (o *Orchestrator) recentTexts(userID string) []string {
	msgs := o.deps.Memory.Recent(userID, 10)
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, string(m.Role)+": "+m.Content)
	}
	return out
}

func hintLabels(hints []routing.Hint) []string {
	out := make([]string, 0, len(hints))
	for _, h := range hints {
		out = append(out, routing.Label(h.Capability))
	}
	return out
}

// runSteps drives the topological step-execution loop: Resolver →
// EntityResolver → dispatch, for every step whose dependsOn are
// already satisfied, until the plan completes or a step interrupts.
func (o *Orchestrator) runSteps(ctx context.Context, state *PipelineState, language string) chatapi.OutboundMessage {
	if state.PlannerOutput == nil {
		return o.fail(ctx, state, language, "internal planning error")
	}
	plan := state.PlannerOutput.Plan

	progressed := true
	for progressed {
		progressed = false
		for _, step := range plan {
			if _, done := state.PerStepResults[step.ID]; done {
				continue
			}
			if !dependenciesSatisfied(step.DependsOn, state.PerStepResults) {
				continue
			}
			progressed = true

			capability := step.Capability
			resolver, ok := o.deps.Resolvers.Get(capability)
			if !ok {
				resolver, _ = o.deps.Resolvers.Get("general")
				capability = "general"
			}

			rctx := resolvers.ResolveContext{
				Language:         language,
				UserID:           state.User.ID,
				Now:              state.Now,
				RecentMessages:   state.RecentMessages,
				UserCapabilities: map[string]bool{"calendar": state.User.Capabilities.Calendar, "email": state.User.Capabilities.Email},
			}
			resOut, err := resolver.Resolve(ctx, step, rctx)
			if err != nil {
				return o.fail(ctx, state, language, "I didn't understand; can you rephrase?")
			}

			if capability == "general" || capability == "meta" {
				state.PerStepResults[step.ID] = executors.Result{Success: true, Data: resOut.Args}
				continue
			}

			if resOut.Type == resolvers.TypeExecute {
				result := dispatch(capability, resOut.Args, nil, false, "", state.Now, o.deps.Executors)
				state.PerStepResults[step.ID] = result
				continue
			}

			domainResolver, ok := o.deps.EntityRes.Get(capability)
			if !ok {
				state.PerStepResults[step.ID] = executors.Result{Success: false, Error: "no entity resolver for " + capability}
				continue
			}

			ectx := entityres.ResolveContext{Language: language, UserID: state.User.ID, Now: state.Now.Now}
			operation, _ := resOut.Args["operation"].(string)
			resolOut, err := domainResolver.Resolve(ctx, operation, resOut.Args, ectx)
			if err != nil {
				return o.fail(ctx, state, language, "I couldn't check that right now; try again?")
			}

			if check := hitl.CheckResolution(resolOut, step.ID, resOut.EntityType); check.ShouldInterrupt {
				state.Disambiguation = &Disambiguation{
					StepID: step.ID, Domain: capability, Operation: operation,
					Args: resOut.Args, Candidates: resolOut.Candidates, EntityType: resOut.EntityType,
					AllowMultiple: resolOut.AllowMultiple,
				}
				return o.interrupt(ctx, state, check, routing.Hints(step.Constraints.RawMessage), language)
			}

			o.recordResolved(state, step.ID, capability, resolOut)
		}
	}

	return o.complete(ctx, state)
}

func (o *Orchestrator) recordResolved(state *PipelineState, stepID, domain string, out entityres.ResolutionOutput) {
	result := dispatch(domain, out.Args, out.ResolvedIDs, out.IsRecurring, out.SeriesID, state.Now, o.deps.Executors)
	state.PerStepResults[stepID] = result
}

func dependenciesSatisfied(deps []string, done map[string]executors.Result) bool {
	for _, d := range deps {
		if _, ok := done[d]; !ok {
			return false
		}
	}
	return true
}

// interrupt builds the question, persists the checkpoint, appends the
// question to ConversationMemory so reply-threading works, and returns
// the InterruptPayload the transport sends back.
func (o *Orchestrator) interrupt(ctx context.Context, state *PipelineState, check hitl.HITLCheck, hints []routing.Hint, language string) chatapi.OutboundMessage {
	qctx := hitl.QuestionContext{
		Message:        state.Input.Message,
		Language:       language,
		RoutingHints:   hints,
		IsDeleteAction: isDeleteStep(state, check.StepID),
	}
	payload := o.deps.HITL.Build(ctx, check, qctx)

	now := time.Now().In(o.deps.Location)
	state.InterruptedAt = &now
	state.HITLReason = check.Reason
	state.HITLType = string(check.Reason)
	state.NeedsHITL = true
	payload.Metadata.InterruptedAt = now

	o.deps.Memory.Append(state.User.ID, convo.RoleAssistant, payload.Question, convo.AppendOptions{})
	if check.Reason == hitl.ReasonDisambiguation && len(check.Candidates) > 0 {
		o.deps.Memory.StoreDisambiguation(state.User.ID, toMemoryCandidates(check.Candidates), check.EntityType)
	}

	_ = o.deps.Checkpoint.Save(ctx, state.User.ID, *state, o.deps.CheckpointTTL)

	return chatapi.OutboundMessage{Kind: chatapi.OutboundInterrupt, Interrupt: &payload}
}

func isDeleteStep(state *PipelineState, stepID string) bool {
	if state.PlannerOutput == nil {
		return false
	}
	for _, step := range state.PlannerOutput.Plan {
		if stepID != "" && step.ID != stepID {
			continue
		}
		if strings.Contains(strings.ToLower(step.ActionHint), "delete") {
			return true
		}
	}
	return false
}

func toMemoryCandidates(candidates []entityres.ResolutionCandidate) []convo.ResolutionCandidate {
	out := make([]convo.ResolutionCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, convo.ResolutionCandidate{ID: c.ID, DisplayText: c.DisplayText})
	}
	return out
}

// complete composes the assistant's reply from the step results,
// appends it to memory, clears the checkpoint, and returns it.
func (o *Orchestrator) complete(ctx context.Context, state *PipelineState) chatapi.OutboundMessage {
	reply := composeReply(state)
	o.deps.Memory.Append(state.User.ID, convo.RoleAssistant, reply, convo.AppendOptions{})
	_ = o.deps.Checkpoint.Clear(ctx, state.User.ID)
	return chatapi.OutboundMessage{Kind: chatapi.OutboundReply, Reply: reply}
}

func (o *Orchestrator) fail(ctx context.Context, state *PipelineState, language, reply string) chatapi.OutboundMessage {
	if language == "he" {
		reply = "לא הבנתי; תוכל לנסח מחדש?"
	}
	state.Error = reply
	o.deps.Memory.Append(state.User.ID, convo.RoleAssistant, reply, convo.AppendOptions{})
	_ = o.deps.Checkpoint.Clear(ctx, state.User.ID)
	return chatapi.OutboundMessage{Kind: chatapi.OutboundReply, Reply: reply}
}

// composeReply is a minimal, deterministic stand-in for the NL
// response-composer the spec delegates to an external collaborator: it
// turns each step's Result into a short confirmation line. Real
// natural-language composition (tone, summarization of returned data)
// is out of scope for the core pipeline.
func composeReply(state *PipelineState) string {
	if state.PlannerOutput == nil || len(state.PlannerOutput.Plan) == 0 {
		return "Done."
	}

	var parts []string
	for _, step := range state.PlannerOutput.Plan {
		result, ok := state.PerStepResults[step.ID]
		if !ok {
			continue
		}
		if step.Capability == "general" || step.Capability == "meta" {
			if args, ok := result.Data.(map[string]any); ok {
				if reply, ok := args["reply"].(string); ok && reply != "" {
					parts = append(parts, reply)
					continue
				}
			}
			parts = append(parts, "Okay.")
			continue
		}
		if !result.Success {
			parts = append(parts, fmt.Sprintf("I couldn't complete that: %s", result.Error))
			continue
		}
		parts = append(parts, confirmationFor(step.Capability, result))
	}
	if len(parts) == 0 {
		return "Done."
	}
	return strings.Join(parts, " ")
}

func confirmationFor(capability string, result executors.Result) string {
	switch capability {
	case "calendar":
		return "Done — your calendar is updated."
	case "taskStore":
		return "Done — your reminders are updated."
	case "email":
		return "Done — your email is handled."
	case "memory":
		return "Done — I've saved that."
	default:
		return "Done."
	}
}
