package entityres

import (
	"context"
	"fmt"

	"convoassist/internal/executors"
	"convoassist/internal/fuzzy"
)

// EmailResolver implements EntityResolver for drafted-but-unsent
// emails — the only entity lookup email needs is "which draft did the
// user mean by send".
type EmailResolver struct {
	executor      executors.EmailExecutor
	fuzzyMatchMin float64
	disambigGap   float64
}

// NewEmail builds an EmailResolver against executor.
func NewEmail(executor executors.EmailExecutor, fuzzyMatchMin, disambiguationGap float64) *EmailResolver {
	return &EmailResolver{executor: executor, fuzzyMatchMin: fuzzyMatchMin, disambigGap: disambiguationGap}
}

func (r *EmailResolver) Domain() string { return "email" }

func (r *EmailResolver) Resolve(ctx context.Context, operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	if id, ok := args["id"].(string); ok && id != "" {
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{id}, Args: args}, nil
	}
	if operation != "send" {
		return ResolutionOutput{Kind: KindResolved, Args: args}, nil
	}

	subject, _ := args["subject"].(string)
	if subject == "" {
		return ResolutionOutput{
			Kind:        KindClarifyQuery,
			Error:       "which draft do you want to send?",
			Suggestions: []string{"the draft's subject"},
		}, nil
	}

	drafts, err := r.executor.List(executors.Filter{})
	if err != nil {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}, nil
	}

	byID := make(map[string]executors.EmailDraft, len(drafts))
	fields := make(map[string][]string, len(drafts))
	for _, d := range drafts {
		byID[d.ID] = d
		fields[d.ID] = []string{d.Subject, d.Body}
	}

	ranked := fuzzy.Rank(subject, r.fuzzyMatchMin, fields)
	candidates := make([]ResolutionCandidate, 0, len(ranked))
	for _, rc := range ranked {
		d := byID[rc.ID]
		candidates = append(candidates, ResolutionCandidate{ID: rc.ID, DisplayText: fmt.Sprintf("%s → %v", d.Subject, d.To), Entity: d, Score: rc.Score})
	}

	switch len(candidates) {
	case 0:
		return ResolutionOutput{Kind: KindNotFound, SearchedFor: subject}, nil
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
		return ResolutionOutput{Kind: KindDisambiguation, Candidates: top, Question: "which draft did you mean?"}, nil
	}
}

func (r *EmailResolver) ApplySelection(selection any, candidates []ResolutionCandidate, args map[string]any) ResolutionOutput {
	return applySelection(selection, candidates, args, false)
}
