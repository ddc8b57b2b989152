package hitl

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	yesRe = regexp.MustCompile(`(?i)^(yes|yep|yeah|sure|ok|okay)$|^(כן|בטח|סבבה)$`)
	noRe  = regexp.MustCompile(`(?i)^(no|nope|nah)$|^(לא)$`)
)

// ParseYesNo classifies a confirmation/approval reply. recognized is
// false when text matches neither a yes nor a no token, in which case
// the caller should re-ask rather than guess.
func ParseYesNo(text string) (value bool, recognized bool) {
	trimmed := strings.TrimSpace(text)
	switch {
	case yesRe.MatchString(trimmed):
		return true, true
	case noRe.MatchString(trimmed):
		return false, true
	default:
		return false, false
	}
}

// ParseDisambiguationSelection turns a raw resume reply into the
// `selection` value entityres.EntityResolver.ApplySelection expects: a
// comma-separated list becomes a multi-select []any of numbers, a
// single numeric token stays a string (entityres parses it), and
// anything else passes through as free text for the "all"/locale-token
// match already built into entityres' selection rules.
func ParseDisambiguationSelection(text string) any {
	trimmed := strings.TrimSpace(text)
	if strings.Contains(trimmed, ",") {
		parts := strings.Split(trimmed, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if n, err := strconv.Atoi(p); err == nil {
				out = append(out, float64(n))
			} else {
				out = append(out, p)
			}
		}
		return out
	}
	return trimmed
}
