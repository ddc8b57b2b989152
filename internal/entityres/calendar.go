package entityres

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"convoassist/internal/executors"
	"convoassist/internal/fuzzy"
)

// CalendarResolver implements EntityResolver for calendar events,
// including the recurring-series disambiguation spec.md §4.5 describes.
type CalendarResolver struct {
	executor          executors.CalendarExecutor
	fuzzyMatchMin     float64
	disambiguationGap float64
}

// NewCalendar builds a CalendarResolver against executor, with the
// named thresholds from config.Pipeline (FuzzyMatchMin default 0.3,
// DisambiguationGap default 0.2).
func NewCalendar(executor executors.CalendarExecutor, fuzzyMatchMin, disambiguationGap float64) *CalendarResolver {
	return &CalendarResolver{executor: executor, fuzzyMatchMin: fuzzyMatchMin, disambiguationGap: disambiguationGap}
}

func (r *CalendarResolver) Domain() string { return "calendar" }

func (r *CalendarResolver) Resolve(ctx context.Context, operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	if id, ok := args["id"].(string); ok && id != "" {
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{id}, Args: args}, nil
	}

	switch operation {
	case "deleteByWindow", "updateByWindow":
		return r.resolveByWindow(operation, args, rctx)
	case "update":
		return r.findByCriteria(operation, args, rctx)
	default: // "delete", "get"
		return r.resolveSingleEvent(operation, args, rctx)
	}
}

func (r *CalendarResolver) ApplySelection(selection any, candidates []ResolutionCandidate, args map[string]any) ResolutionOutput {
	return applySelection(selection, candidates, args, false)
}

// resolveSingleEvent implements spec.md's seven-step algorithm for
// "delete single" / "get single".
func (r *CalendarResolver) resolveSingleEvent(operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	summary, _ := args["summary"].(string)
	_, hasMin := args["timeMin"]
	_, hasMax := args["timeMax"]
	_, hasStart := args["start"]
	if summary == "" && !hasMin && !hasMax && !hasStart {
		return ResolutionOutput{
			Kind:        KindClarifyQuery,
			Error:       "which event do you mean?",
			SearchedFor: summary,
			Suggestions: []string{"the event's name", "a day or time window"},
		}, nil
	}

	min, max := deriveWindow(args, rctx.Now)
	events, err := r.executor.List(executors.Filter{TimeMin: min, TimeMax: max})
	if err != nil {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}, nil
	}

	candidates := r.scoreAndFilter(events, summary, args)
	sortCandidatesDesc(candidates)

	switch len(candidates) {
	case 0:
		searched := summary
		if searched == "" {
			searched = "the selected window"
		}
		return ResolutionOutput{Kind: KindNotFound, SearchedFor: searched}, nil
	case 1:
		return r.withRecurringHandling(operation, candidates[0], args), nil
	default:
		if sameSeries(candidates) {
			nearest := nearestUpcoming(candidates, rctx.Now)
			return r.withRecurringHandling(operation, nearest, args), nil
		}
		if candidates[0].Score-candidates[1].Score >= r.disambiguationGap {
			return r.withRecurringHandling(operation, candidates[0], args), nil
		}
		top := candidates
		if len(top) > 5 {
			top = top[:5]
		}
		return ResolutionOutput{Kind: KindDisambiguation, Candidates: top, Question: "which one did you mean?"}, nil
	}
}

// findByCriteria implements "update single" by running the same search
// as resolveSingleEvent. The nearest-upcoming rule is applied only when
// every candidate belongs to one recurring series; candidates from
// different events whose scores differ by less than disambiguationGap
// produce a Disambiguation rather than a time-based tiebreak.
func (r *CalendarResolver) findByCriteria(operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	return r.resolveSingleEvent(operation, args, rctx)
}

// resolveByWindow implements deleteByWindow/updateByWindow: every
// matching event in the window, recurring series collapsed to their
// master id.
func (r *CalendarResolver) resolveByWindow(operation string, args map[string]any, rctx ResolveContext) (ResolutionOutput, error) {
	min, max := deriveWindow(args, rctx.Now)
	events, err := r.executor.List(executors.Filter{TimeMin: min, TimeMax: max})
	if err != nil {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}, nil
	}

	summary, _ := args["summary"].(string)
	candidates := r.scoreAndFilter(events, summary, args)
	if len(candidates) == 0 {
		return ResolutionOutput{Kind: KindNotFound, SearchedFor: summary}, nil
	}

	seen := map[string]bool{}
	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		id := c.ID
		if c.Metadata.RecurringSeriesID != "" {
			id = c.Metadata.RecurringSeriesID
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}

	out := copyArgs(args)
	out["operation"] = operation
	return ResolutionOutput{Kind: KindResolved, ResolvedIDs: ids, Args: out}, nil
}

// withRecurringHandling applies spec.md's recurring-event handling for
// delete/update when the chosen candidate belongs to a series.
func (r *CalendarResolver) withRecurringHandling(operation string, candidate ResolutionCandidate, args map[string]any) ResolutionOutput {
	out := copyArgs(args)
	out["id"] = candidate.ID

	if candidate.Metadata.RecurringSeriesID == "" || (operation != "delete" && operation != "update") {
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{candidate.ID}, Args: out}
	}

	if intent, _ := args["recurringSeriesIntent"].(bool); intent {
		out["eventId"] = candidate.Metadata.RecurringSeriesID
		return ResolutionOutput{
			Kind:        KindResolved,
			ResolvedIDs: []string{candidate.Metadata.RecurringSeriesID},
			Args:        out,
			IsRecurring: true,
			SeriesID:    candidate.Metadata.RecurringSeriesID,
		}
	}

	return ResolutionOutput{
		Kind: KindDisambiguation,
		Candidates: []ResolutionCandidate{
			{ID: "all", DisplayText: "the whole series", Metadata: CandidateMetadata{RecurringSeriesID: candidate.Metadata.RecurringSeriesID, IsRecurringSeries: true}},
			{ID: "single", DisplayText: "just this one", Metadata: CandidateMetadata{RecurringSeriesID: candidate.ID, IsRecurringSeries: false}},
		},
		Question: "do you mean this one occurrence, or the whole series?",
	}
}

func (r *CalendarResolver) scoreAndFilter(events []executors.CalendarEvent, summary string, args map[string]any) []ResolutionCandidate {
	exclude := asStringSlice(args["excludeSummaries"])
	startHHMM, _ := args["startTime"].(string)
	endHHMM, _ := args["endTime"].(string)
	dayOfWeek := asIntPtr(args["dayOfWeek"])

	var out []ResolutionCandidate
	for _, ev := range events {
		if excluded(ev.Summary, exclude) {
			continue
		}
		if !withinTimeOfDay(ev.Start, startHHMM, endHHMM) || !withinDayOfWeek(ev.Start, dayOfWeek) {
			continue
		}

		score := 1.0
		if summary != "" {
			score = fuzzy.Score(summary, ev.Summary, ev.Description)
			if score < r.fuzzyMatchMin {
				continue
			}
		}

		out = append(out, ResolutionCandidate{
			ID:          ev.ID,
			DisplayText: fmt.Sprintf("%s (%s)", ev.Summary, ev.Start.Format("Jan 2 15:04")),
			Entity:      ev,
			Score:       score,
			Metadata: CandidateMetadata{
				IsRecurring:       ev.RecurringSeriesID != "",
				RecurringSeriesID: ev.RecurringSeriesID,
				Start:             ev.Start,
				End:               ev.End,
			},
		})
	}
	return out
}

func excluded(summary string, exclude []string) bool {
	lower := strings.ToLower(summary)
	for _, ex := range exclude {
		if strings.Contains(lower, strings.ToLower(ex)) {
			return true
		}
	}
	return false
}

func sameSeries(candidates []ResolutionCandidate) bool {
	if len(candidates) == 0 {
		return false
	}
	id := candidates[0].Metadata.RecurringSeriesID
	if id == "" {
		return false
	}
	for _, c := range candidates[1:] {
		if c.Metadata.RecurringSeriesID != id {
			return false
		}
	}
	return true
}

// nearestUpcoming partitions by future/past relative to now, prefers
// future, and within a partition picks the closest by absolute delta.
func nearestUpcoming(candidates []ResolutionCandidate, now time.Time) ResolutionCandidate {
	var future, past []ResolutionCandidate
	for _, c := range candidates {
		if c.Metadata.Start.After(now) {
			future = append(future, c)
		} else {
			past = append(past, c)
		}
	}

	pool := future
	if len(pool) == 0 {
		pool = past
	}

	best := pool[0]
	bestDelta := absDuration(best.Metadata.Start.Sub(now))
	for _, c := range pool[1:] {
		delta := absDuration(c.Metadata.Start.Sub(now))
		if delta < bestDelta {
			best = c
			bestDelta = delta
		}
	}
	return best
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func sortCandidatesDesc(c []ResolutionCandidate) {
	sort.SliceStable(c, func(i, j int) bool { return c[i].Score > c[j].Score })
}
