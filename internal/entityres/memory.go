package entityres

import (
	"context"

	"convoassist/internal/executors"
	"convoassist/internal/fuzzy"
)

// MemoryResolver implements EntityResolver for freeform memory notes.
type MemoryResolver struct {
	executor      executors.MemoryExecutor
	fuzzyMatchMin float64
	disambigGap   float64
}

// NewMemory builds a MemoryResolver against executor.
func NewMemory(executor executors.MemoryExecutor, fuzzyMatchMin, disambiguationGap float64) *MemoryResolver {
	return &MemoryResolver{executor: executor, fuzzyMatchMin: fuzzyMatchMin, disambigGap: disambiguationGap}
}

func (r *MemoryResolver) Domain() string { return "memory" }

func (r *MemoryResolver) Resolve(ctx context.Context, operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	if id, ok := args["id"].(string); ok && id != "" {
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{id}, Args: args}, nil
	}
	if operation == "create" {
		return ResolutionOutput{Kind: KindResolved, Args: args}, nil
	}

	text, _ := args["text"].(string)
	if text == "" {
		return ResolutionOutput{
			Kind:        KindClarifyQuery,
			Error:       "which note do you mean?",
			Suggestions: []string{"a phrase from the note"},
		}, nil
	}

	notes, err := r.executor.List(executors.Filter{})
	if err != nil {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}, nil
	}

	byID := make(map[string]executors.MemoryNote, len(notes))
	fields := make(map[string][]string, len(notes))
	for _, n := range notes {
		byID[n.ID] = n
		fields[n.ID] = []string{n.Text}
	}

	ranked := fuzzy.Rank(text, r.fuzzyMatchMin, fields)
	candidates := make([]ResolutionCandidate, 0, len(ranked))
	for _, rc := range ranked {
		n := byID[rc.ID]
		candidates = append(candidates, ResolutionCandidate{ID: rc.ID, DisplayText: n.Text, Entity: n, Score: rc.Score})
	}

	switch len(candidates) {
	case 0:
		return ResolutionOutput{Kind: KindNotFound, SearchedFor: text}, nil
	case 1:
		out := copyArgs(args)
		out["id"] = candidates[0].ID
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{candidates[0].ID}, Args: out}, nil
	default:
		if candidates[0].Score-candidates[1].Score >= r.disambigGap {
			out := copyArgs(args)
			out["id"] = candidates[0].ID
			return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{candidates[0].ID}, Args: out}, nil
		}
		top := candidates
		if len(top) > 5 {
			top = top[:5]
		}
		return ResolutionOutput{Kind: KindDisambiguation, Candidates: top, Question: "which note did you mean?"}, nil
	}
}

func (r *MemoryResolver) ApplySelection(selection any, candidates []ResolutionCandidate, args map[string]any) ResolutionOutput {
	return applySelection(selection, candidates, args, false)
}
