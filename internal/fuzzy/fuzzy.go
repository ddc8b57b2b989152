// Package fuzzy scores how well a free-text query matches an entity's
// searchable fields. No example repo in the corpus ships a fuzzy-match
// library usable for short natural-language entity references (the
// available text-search deps are full search engines or embeddings
// clients, overkill for "does this event summary match what the user
// said"), so this is intentionally a small stdlib-only scorer — see
// DESIGN.md for the considered alternatives.
package fuzzy

import "strings"

// Score returns a deterministic match score in [0,1] between query and
// a set of candidate fields. It combines a normalized-substring signal
// with a token-overlap (Jaccard-like) signal, taking the stronger of
// the two so a query that's wholly contained in a field scores as well
// as one that shares most of its tokens with it.
func Score(query string, fields ...string) float64 {
	q := normalize(query)
	if q == "" {
		return 0
	}

	var best float64
	for _, field := range fields {
		f := normalize(field)
		if f == "" {
			continue
		}
		if s := scorePair(q, f); s > best {
			best = s
		}
	}
	return best
}

func scorePair(q, f string) float64 {
	substr := substringScore(q, f)
	tokens := tokenOverlapScore(q, f)
	if substr > tokens {
		return substr
	}
	return tokens
}

// substringScore rewards query being (almost) fully contained in field,
// scaled by how much of the field it covers so an exact match beats a
// one-word match against a long field.
func substringScore(q, f string) float64 {
	if q == f {
		return 1
	}
	if strings.Contains(f, q) {
		return 0.6 + 0.4*float64(len(q))/float64(len(f))
	}
	if strings.Contains(q, f) && len(f) > 0 {
		return 0.5 + 0.3*float64(len(f))/float64(len(q))
	}
	return 0
}

// tokenOverlapScore is the Jaccard index of the two token sets.
func tokenOverlapScore(q, f string) float64 {
	qTokens := tokenSet(q)
	fTokens := tokenSet(f)
	if len(qTokens) == 0 || len(fTokens) == 0 {
		return 0
	}

	intersection := 0
	for tok := range qTokens {
		if fTokens[tok] {
			intersection++
		}
	}
	union := len(qTokens) + len(fTokens) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	tokens := strings.Fields(s)
	set := make(map[string]bool, len(tokens))
	for _, tok := range tokens {
		if len(tok) >= 2 {
			set[tok] = true
		}
	}
	return set
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

// Candidate pairs an opaque id with the text score against a query.
type Candidate struct {
	ID    string
	Score float64
}

// Rank scores and sorts candidates descending by score, dropping anything
// below min. TaskStoreResolver, EmailResolver, and MemoryResolver call it
// directly with each entity's flat list of text fields; CalendarResolver needs its own
// scoring loop (time-of-day/day-of-week filters, recurring-series
// tie-breaks) so it calls Score per candidate instead.
func Rank(query string, min float64, items map[string][]string) []Candidate {
	out := make([]Candidate, 0, len(items))
	for id, fields := range items {
		score := Score(query, fields...)
		if score >= min {
			out = append(out, Candidate{ID: id, Score: score})
		}
	}
	sortCandidatesDesc(out)
	return out
}

func sortCandidatesDesc(c []Candidate) {
	for i := 1; i < len(c); i++ {
		j := i
		for j > 0 && c[j-1].Score < c[j].Score {
			c[j-1], c[j] = c[j], c[j-1]
			j--
		}
	}
}
