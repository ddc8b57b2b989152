package resolvers

import "regexp"

// reminderStyle classifies a reminder request as one-time, recurring,
// or a "nudge" (a soft recurring ping with no fixed schedule). Only the
// task resolver's deterministic fallback uses it, to pick the reminder
// string; it is not passed to the LLM prompt.
type reminderStyle string

const (
	reminderOneTime   reminderStyle = "one-time"
	reminderRecurring reminderStyle = "recurring"
	reminderNudge     reminderStyle = "nudge"
)

var (
	recurringRe = regexp.MustCompile(`(?i)\b(every day|every week|daily|weekly|monthly)\b|כל יום|כל שבוע`)
	nudgeRe     = regexp.MustCompile(`(?i)\b(keep reminding|nudge|don't let me forget)\b|תזכיר לי שוב`)
	crudVerbRe  = map[string]*regexp.Regexp{
		"create": regexp.MustCompile(`(?i)\b(remind|add|create|schedule)\b|תזכיר|תוסיף`),
		"update": regexp.MustCompile(`(?i)\b(change|move|reschedule|snooze)\b|לשנות|לדחות`),
		"delete": regexp.MustCompile(`(?i)\b(delete|remove|cancel)\b|תמחק|לבטל`),
		"complete": regexp.MustCompile(`(?i)\b(done|complete|finished|check off)\b|סיימתי|בוצע`),
	}
)

// classifyReminderStyle returns the advisory reminder-style hint for
// message.
func classifyReminderStyle(message string) reminderStyle {
	if nudgeRe.MatchString(message) {
		return reminderNudge
	}
	if recurringRe.MatchString(message) {
		return reminderRecurring
	}
	return reminderOneTime
}

// classifyCRUDVerb returns the CRUD verb the task resolver's fallback
// turns into its operation, with a score, picking the first matching
// verb in priority order (complete treated
// as highest priority since it is the most specific signal).
func classifyCRUDVerb(message string) (string, float64) {
	order := []string{"complete", "delete", "update", "create"}
	for _, verb := range order {
		if crudVerbRe[verb].MatchString(message) {
			return verb, 0.8
		}
	}
	return "create", 0.3
}
