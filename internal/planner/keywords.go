package planner

import (
	"regexp"
	"strings"
)

var (
	deleteRe = regexp.MustCompile(`(?i)\b(delete|remove|cancel)\b|תמחק|לבטל`)
	sendRe   = regexp.MustCompile(`(?i)\b(send|email)\b|לשלוח`)
	bulkRe   = regexp.MustCompile(`(?i)\ball\b|(?i)\bevery\b|כל ה`)
	updateRe = regexp.MustCompile(`(?i)\b(update|move|reschedule|change)\b|לשנות|להזיז`)
	createRe = regexp.MustCompile(`(?i)\b(create|add|schedule|remind|book)\b|תזכיר|תוסיף|לקבוע`)
)

// inferRisk applies the documented risk-inference rule: low for
// create/read, medium for update/move, high for delete, send-email, or
// bulk-delete.
func inferRisk(message string) RiskLevel {
	isDelete := deleteRe.MatchString(message)
	isBulk := bulkRe.MatchString(message)
	isSend := sendRe.MatchString(message)

	if isDelete || isSend || (isDelete && isBulk) {
		return RiskHigh
	}
	if updateRe.MatchString(message) {
		return RiskMedium
	}
	return RiskLow
}

// inferAction picks a coarse CRUD-ish action hint from keywords, used
// only by the deterministic fallback path.
func inferAction(message string) string {
	switch {
	case deleteRe.MatchString(message):
		return "delete"
	case updateRe.MatchString(message):
		return "update"
	case sendRe.MatchString(message):
		return "send"
	case createRe.MatchString(message):
		return "create"
	default:
		return "list"
	}
}

// targetUnclear implements the rule: target_unclear is emitted only
// when the message asks to delete/modify items AND supplies neither a
// name-like reference nor a time window. A name-like reference is a
// "with <name>" phrase or any word that genericTargetWordRe does not
// cover (mutation verbs, articles, pronouns, generic item nouns).
func targetUnclear(message string) bool {
	wantsMutation := deleteRe.MatchString(message) || updateRe.MatchString(message)
	if !wantsMutation {
		return false
	}
	hasTimeWindow := timeWindowRe.MatchString(message)
	hasQuotedName := quotedNameRe.MatchString(message)
	for _, word := range strings.Fields(strings.ToLower(message)) {
		word = strings.Trim(word, ".,!?;:'\"")
		if word != "" && !genericTargetWordRe.MatchString(word) {
			hasQuotedName = true
		}
	}
	return !hasTimeWindow && !hasQuotedName
}

var (
	timeWindowRe        = regexp.MustCompile(`(?i)\b(today|tomorrow|next week|this week|morning|evening)\b|היום|מחר|השבוע|בבוקר|בערב`)
	quotedNameRe        = regexp.MustCompile(`(?i)\bwith\s+\w+\b|עם\s+\S+`)
	genericTargetWordRe = regexp.MustCompile(`^(delete|remove|cancel|update|move|reschedule|change|the|a|an|my|all|every|it|that|this|these|those|them|please|meetings?|events?|appointments?|tasks?|reminders?|todos?|notes?|emails?|drafts?|תמחק|לבטל|לשנות|להזיז|את|כל|ה?(פגישה|פגישות|משימה|משימות|תזכורת|תזכורות|אירוע|אירועים))$`)
)
