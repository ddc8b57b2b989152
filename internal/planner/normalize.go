package planner

// normalize applies the documented validation pass to a raw PlanOutput:
// clamp confidence to [0,1], coerce riskLevel via keyword inference when
// missing, assign step ids by position when absent, default
// constraints.rawMessage to the input message, and drop dependsOn
// entries referring to unknown or cyclic step ids. normalize(normalize(x))
// == normalize(x): every step here is already idempotent once applied.
func normalize(out PlanOutput, in Input) PlanOutput {
	out.Confidence = clamp01(out.Confidence)

	if out.RiskLevel == "" {
		out.RiskLevel = inferRisk(in.EnhancedMessage)
	}

	if len(out.Plan) == 0 && out.IntentType == IntentMeta {
		out.Plan = []PlanStep{synthesizeMetaStep(in)}
	}

	ids := make(map[string]bool, len(out.Plan))
	for i := range out.Plan {
		if out.Plan[i].ID == "" {
			out.Plan[i].ID = positionalID(i)
		}
		ids[out.Plan[i].ID] = true
	}

	for i := range out.Plan {
		step := &out.Plan[i]
		if step.Constraints.RawMessage == "" {
			step.Constraints.RawMessage = in.EnhancedMessage
		}
		if !isKnownCapability(step.Capability) {
			step.Capability = string(routingGeneralCapability)
		}
		step.DependsOn = dropUnknownDeps(step.DependsOn, ids)
	}

	out.Plan = breakCycles(out.Plan)

	return out
}

const routingGeneralCapability = "general"

// synthesizeMetaStep covers the boundary case where the model (or a
// malformed completion) reports intentType=meta with an empty plan —
// a meta turn ("what can you do?", "cancel that", "never mind") still
// needs exactly one step to execute, so one is built from the same
// keyword inference fallbackPlan uses rather than letting the turn
// silently no-op.
func synthesizeMetaStep(in Input) PlanStep {
	return PlanStep{
		ID:         "A",
		Capability: "meta",
		ActionHint: inferAction(in.EnhancedMessage),
		Constraints: Constraints{
			RawMessage: in.EnhancedMessage,
		},
	}
}

func isKnownCapability(c string) bool {
	switch c {
	case "calendar", "taskStore", "email", "memory", "general", "meta":
		return true
	default:
		return false
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func positionalID(index int) string {
	return string(rune('A' + index))
}

func dropUnknownDeps(deps []string, known map[string]bool) []string {
	out := deps[:0:0]
	for _, d := range deps {
		if known[d] {
			out = append(out, d)
		}
	}
	return out
}

// breakCycles removes dependsOn edges that would make the induced
// graph cyclic, processing steps in plan order so earlier steps win.
func breakCycles(steps []PlanStep) []PlanStep {
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		index[s.ID] = i
	}

	for i := range steps {
		kept := steps[i].DependsOn[:0:0]
		for _, dep := range steps[i].DependsOn {
			if !introducesCycle(steps, index, steps[i].ID, dep) {
				kept = append(kept, dep)
			}
		}
		steps[i].DependsOn = kept
	}
	return steps
}

// introducesCycle reports whether adding an edge from->to would create
// a cycle, i.e. whether to can already reach from.
func introducesCycle(steps []PlanStep, index map[string]int, from, to string) bool {
	visited := make(map[string]bool)
	var visit func(id string) bool
	visit = func(id string) bool {
		if id == from {
			return true
		}
		if visited[id] {
			return false
		}
		visited[id] = true
		i, ok := index[id]
		if !ok {
			return false
		}
		for _, dep := range steps[i].DependsOn {
			if visit(dep) {
				return true
			}
		}
		return false
	}
	return visit(to)
}
