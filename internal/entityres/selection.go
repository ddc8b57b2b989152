package entityres

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	allTokenRe  = regexp.MustCompile(`(?i)^(both|all)$|^(הכל|כולם|שניהם)$`)
	selectOneRe = regexp.MustCompile(`(?i)^(single|one|this one)$|^(אחד|רק זה|בודד)$`)
)

// isRecurringChoice reports whether candidates is the exact two-option
// {all, single} shape resolveSingleEvent emits for a recurring series.
func isRecurringChoice(candidates []ResolutionCandidate) bool {
	if len(candidates) != 2 {
		return false
	}
	ids := map[string]bool{candidates[0].ID: true, candidates[1].ID: true}
	return ids["all"] && ids["single"]
}

// applySelection re-resolves a user's reply to a prior Disambiguation
// against the candidates it surfaced. Shared across domains per the
// "String forms / numeric / array / recurring-choice" rules.
func applySelection(selection any, candidates []ResolutionCandidate, args map[string]any, allowMultiple bool) ResolutionOutput {
	if len(candidates) == 0 {
		return ResolutionOutput{Kind: KindNotFound, Error: "service unavailable"}
	}

	if isRecurringChoice(candidates) {
		return applyRecurringChoice(selection, candidates, args)
	}

	text, isText := selection.(string)

	if isText && allTokenRe.MatchString(strings.TrimSpace(text)) {
		ids := make([]string, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: ids, Args: args}
	}

	if nums, ok := selectionNumbers(selection); ok {
		if len(nums) > 1 && !allowMultiple {
			return reinviteDisambiguation(candidates, allowMultiple, "invalid selection")
		}
		ids := make([]string, 0, len(nums))
		for _, n := range nums {
			idx := n - 1
			if idx < 0 || idx >= len(candidates) {
				return reinviteDisambiguation(candidates, allowMultiple, "invalid selection")
			}
			ids = append(ids, candidates[idx].ID)
		}
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: ids, Args: args}
	}

	return reinviteDisambiguation(candidates, allowMultiple, "invalid selection")
}

func applyRecurringChoice(selection any, candidates []ResolutionCandidate, args map[string]any) ResolutionOutput {
	text, _ := selection.(string)
	text = strings.TrimSpace(text)

	var all, single ResolutionCandidate
	for _, c := range candidates {
		if c.ID == "all" {
			all = c
		} else {
			single = c
		}
	}

	switch {
	case text == "1" || allTokenRe.MatchString(text):
		out := copyArgs(args)
		out["eventId"] = all.Metadata.RecurringSeriesID
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{all.Metadata.RecurringSeriesID}, Args: out, IsRecurring: true, SeriesID: all.Metadata.RecurringSeriesID}
	case text == "2" || selectOneRe.MatchString(text):
		out := copyArgs(args)
		id := single.Metadata.RecurringSeriesID
		if single.ID != "" && single.ID != "single" {
			id = single.ID
		}
		return ResolutionOutput{Kind: KindResolved, ResolvedIDs: []string{id}, Args: out}
	default:
		return ResolutionOutput{
			Kind:       KindDisambiguation,
			Candidates: candidates,
			Question:   "invalid selection",
		}
	}
}

func reinviteDisambiguation(candidates []ResolutionCandidate, allowMultiple bool, question string) ResolutionOutput {
	return ResolutionOutput{
		Kind:          KindDisambiguation,
		Candidates:    candidates,
		Question:      question,
		AllowMultiple: allowMultiple,
	}
}

// selectionNumbers normalizes selection into a 1-based index slice:
// accepts a single string/float/int, or a slice of any of those.
func selectionNumbers(selection any) ([]int, bool) {
	switch v := selection.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, false
		}
		return []int{n}, true
	case float64:
		return []int{int(v)}, true
	case int:
		return []int{v}, true
	case []any:
		out := make([]int, 0, len(v))
		for _, item := range v {
			nums, ok := selectionNumbers(item)
			if !ok {
				return nil, false
			}
			out = append(out, nums...)
		}
		return out, true
	default:
		return nil, false
	}
}
