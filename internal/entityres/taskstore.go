package entityres

import (
	"context"
	"fmt"

	"convoassist/internal/executors"
	"convoassist/internal/fuzzy"
)

// TaskStoreResolver implements EntityResolver for reminders/tasks. It
// has no recurring-series concept — series-like recurrence lives in the
// task's Reminder field, not in the entity identity — so its shape is a
// simpler version of CalendarResolver's single/window split.
type TaskStoreResolver struct {
	executor      executors.TaskStoreExecutor
	fuzzyMatchMin float64
	disambigGap   float64
}

// NewTaskStore builds a TaskStoreResolver against executor.
func NewTaskStore(executor executors.TaskStoreExecutor, fuzzyMatchMin, disambiguationGap float64) *TaskStoreResolver {
	return &TaskStoreResolver{executor: executor, fuzzyMatchMin: fuzzyMatchMin, disambigGap: disambiguationGap}
}

func (r *TaskStoreResolver) Domain() string { return "taskStore" }

func (r *TaskStoreResolver) Resolve(ctx context.Context, operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	if id, ok := args["id"].(string); ok && id != "" {
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{id}, Args: args}, nil
	}

	if operation == "deleteAll" {
		return r.resolveAll(args)
	}

	text, _ := args["text"].(string)
	if text == "" {
		return ResolutionOutput{
			Kind:        KindClarifyQuery,
			Error:       "which reminder do you mean?",
			Suggestions: []string{"the reminder's text"},
		}, nil
	}

	tasks, err := r.executor.List(executors.Filter{})
	if err != nil {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}, nil
	}

	byID := make(map[string]executors.Task, len(tasks))
	fields := make(map[string][]string, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
		fields[t.ID] = []string{t.Text}
	}

	ranked := fuzzy.Rank(text, r.fuzzyMatchMin, fields)
	candidates := make([]ResolutionCandidate, 0, len(ranked))
	for _, rc := range ranked {
		t := byID[rc.ID]
		candidates = append(candidates, ResolutionCandidate{
			ID:          rc.ID,
			DisplayText: fmt.Sprintf("%s (%s)", t.Text, t.Reminder),
			Entity:      t,
			Score:       rc.Score,
		})
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
		return ResolutionOutput{Kind: KindDisambiguation, Candidates: top, Question: "which one did you mean?"}, nil
	}
}

func (r *TaskStoreResolver) resolveAll(args map[string]any) (ResolutionOutput, error) {
	tasks, err := r.executor.List(executors.Filter{})
	if err != nil {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}, nil
	}
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
	}
	return ResolutionOutput{Kind: KindResolved, ResolvedIDs: ids, Args: args}, nil
}

func (r *TaskStoreResolver) ApplySelection(selection any, candidates []ResolutionCandidate, args map[string]any) ResolutionOutput {
	return applySelection(selection, candidates, args, false)
}

func copyArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
