// Package routing provides deterministic, regex-derived capability
// priors for a raw inbound message. It is a pure, side-effect-free
// pattern matcher generalized from the teacher's static botCommands
// dispatch table (internal/telegram/webhook.go): where the teacher
// walks a fixed []BotCommand table matching exact command literals,
// this package walks a fixed per-capability pattern table matching
// weighted regexes, producing priors instead of a single selected
// command.
package routing

import (
	"regexp"
	"sort"
	"strings"
)

// Capability is a top-level domain the assistant can act on.
type Capability string

const (
	CapabilityCalendar  Capability = "calendar"
	CapabilityTaskStore Capability = "taskStore"
	CapabilityEmail     Capability = "email"
	CapabilityMemory    Capability = "memory"
	CapabilityGeneral   Capability = "general"
	CapabilityMeta      Capability = "meta"
)

// Hint is one scored capability suggestion for a message.
type Hint struct {
	Capability     Capability
	Score          float64
	MatchedPattern string
}

type pattern struct {
	capability Capability
	weight     float64
	re         *regexp.Regexp
}

// table holds the fixed capability pattern families. Patterns are
// case-insensitive and cover both English and Hebrew keyword forms,
// since the pipeline's language set is {he, en, other}.
var table = []pattern{
	// calendar
	{CapabilityCalendar, 0.9, regexp.MustCompile(`(?i)\b(meeting|meetings|event|events|calendar|schedule|appointment|appointments)\b`)},
	{CapabilityCalendar, 0.9, regexp.MustCompile(`פגיש|יומן|אירוע`)},
	{CapabilityCalendar, 0.6, regexp.MustCompile(`(?i)\b(tomorrow|today|next week)\b`)},
	{CapabilityCalendar, 0.6, regexp.MustCompile(`מחר|היום|השבוע`)},

	// taskStore
	{CapabilityTaskStore, 0.9, regexp.MustCompile(`(?i)\b(remind|reminder|task|todo|to-do)\b`)},
	{CapabilityTaskStore, 0.9, regexp.MustCompile(`תזכיר|משימ|לנתק|תזכורת`)},
	{CapabilityTaskStore, 0.5, regexp.MustCompile(`(?i)\bdon't forget\b`)},

	// email
	{CapabilityEmail, 0.9, regexp.MustCompile(`(?i)\b(email|e-mail|mail|send.*message)\b`)},
	{CapabilityEmail, 0.9, regexp.MustCompile(`מייל|אימייל|לשלוח`)},

	// memory
	{CapabilityMemory, 0.9, regexp.MustCompile(`(?i)\b(remember|note|recall|memory)\b`)},
	{CapabilityMemory, 0.9, regexp.MustCompile(`זכור|תזכור|הערה`)},

	// meta
	{CapabilityMeta, 0.8, regexp.MustCompile(`(?i)\b(help|what can you do|settings|language)\b`)},
	{CapabilityMeta, 0.8, regexp.MustCompile(`עזרה|הגדרות|שפה`)},
}

// Hints scans message against every pattern in the table and returns
// the resulting capability priors, sorted by score descending then by
// capability name for determinism. Hints never errors and never
// touches any external state.
func Hints(message string) []Hint {
	scores := make(map[Capability]float64)
	matches := make(map[Capability]string)

	for _, p := range table {
		loc := p.re.FindString(message)
		if loc == "" {
			continue
		}
		if p.weight > scores[p.capability] {
			scores[p.capability] = p.weight
			matches[p.capability] = strings.TrimSpace(loc)
		}
	}

	hints := make([]Hint, 0, len(scores))
	for cap, score := range scores {
		hints = append(hints, Hint{Capability: cap, Score: score, MatchedPattern: matches[cap]})
	}
	sort.Slice(hints, func(i, j int) bool {
		if hints[i].Score != hints[j].Score {
			return hints[i].Score > hints[j].Score
		}
		return hints[i].Capability < hints[j].Capability
	})
	return hints
}

// Top returns the single highest-scoring capability, or
// CapabilityGeneral if no pattern matched. Used as the Planner's
// fallback capability inference when the LLM call fails entirely.
func Top(message string) Capability {
	hints := Hints(message)
	if len(hints) == 0 {
		return CapabilityGeneral
	}
	return hints[0].Capability
}

// Label returns a human-friendly, never-internal-name label for a
// capability, used when HITLGate renders "what I thought you meant"
// options — spec.md explicitly forbids leaking internal resolver
// names into clarification prompts.
func Label(c Capability) string {
	switch c {
	case CapabilityCalendar:
		return "calendar"
	case CapabilityTaskStore:
		return "reminders"
	case CapabilityEmail:
		return "email"
	case CapabilityMemory:
		return "notes"
	case CapabilityMeta:
		return "settings"
	default:
		return "general chat"
	}
}
