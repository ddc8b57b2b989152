package entityres

import (
	"regexp"
	"time"
)

var (
	tomorrowRe = regexp.MustCompile(`(?i)\btomorrow\b|מחר`)
	todayRe    = regexp.MustCompile(`(?i)\btoday\b|היום`)
	nextWeekRe = regexp.MustCompile(`(?i)\bnext week\b|השבוע הבא`)
	thisWeekRe = regexp.MustCompile(`(?i)\bthis week\b|השבוע`)
)

// defaultCalendarWindow is the "default wide window" resolveSingleEvent
// falls back to when no explicit or phrase-derived window is available:
// a week back to a month forward from now.
func defaultCalendarWindow(now time.Time) (time.Time, time.Time) {
	return now.AddDate(0, 0, -7), now.AddDate(0, 0, 30)
}

// deriveWindow implements the priority order: explicit timeMin/timeMax →
// explicit start/end day → a phrase parsed out of summary → the default
// wide window.
func deriveWindow(args map[string]any, now time.Time) (time.Time, time.Time) {
	if min, max, ok := explicitTimeMinMax(args, now); ok {
		return min, max
	}
	if min, max, ok := explicitStartEndDay(args, now); ok {
		return min, max
	}
	if summary, ok := args["summary"].(string); ok {
		if min, max, ok := windowFromPhrase(summary, now); ok {
			return min, max
		}
	}
	return defaultCalendarWindow(now)
}

func explicitTimeMinMax(args map[string]any, now time.Time) (time.Time, time.Time, bool) {
	minStr, okMin := args["timeMin"].(string)
	maxStr, okMax := args["timeMax"].(string)
	if !okMin && !okMax {
		return time.Time{}, time.Time{}, false
	}
	min := now
	max := now.AddDate(0, 0, 30)
	if okMin {
		if t, err := time.Parse(time.RFC3339, minStr); err == nil {
			min = t
		}
	}
	if okMax {
		if t, err := time.Parse(time.RFC3339, maxStr); err == nil {
			max = t
		}
	}
	return min, max, true
}

func explicitStartEndDay(args map[string]any, now time.Time) (time.Time, time.Time, bool) {
	startStr, okStart := args["start"].(string)
	endStr, okEnd := args["end"].(string)
	if !okStart && !okEnd {
		return time.Time{}, time.Time{}, false
	}
	start := now
	end := now.AddDate(0, 0, 1)
	if okStart {
		if t, err := time.Parse(time.RFC3339, startStr); err == nil {
			start = t
		}
	}
	if okEnd {
		if t, err := time.Parse(time.RFC3339, endStr); err == nil {
			end = t
		}
	}
	return start, end, true
}

func windowFromPhrase(phrase string, now time.Time) (time.Time, time.Time, bool) {
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch {
	case tomorrowRe.MatchString(phrase):
		start := startOfDay.AddDate(0, 0, 1)
		return start, start.AddDate(0, 0, 1), true
	case todayRe.MatchString(phrase):
		return startOfDay, startOfDay.AddDate(0, 0, 1), true
	case nextWeekRe.MatchString(phrase):
		start := startOfDay.AddDate(0, 0, 7)
		return start, start.AddDate(0, 0, 7), true
	case thisWeekRe.MatchString(phrase):
		return startOfDay, startOfDay.AddDate(0, 0, 7), true
	default:
		return time.Time{}, time.Time{}, false
	}
}

// withinTimeOfDay reports whether t's clock time falls within
// [startHHMM, endHHMM]; either bound empty disables that side.
func withinTimeOfDay(t time.Time, startHHMM, endHHMM string) bool {
	if startHHMM == "" && endHHMM == "" {
		return true
	}
	clock := t.Format("15:04")
	if startHHMM != "" && clock < startHHMM {
		return false
	}
	if endHHMM != "" && clock > endHHMM {
		return false
	}
	return true
}

// withinDayOfWeek reports whether t falls on dow (Sun=0...Sat=6), or
// true if dow is nil.
func withinDayOfWeek(t time.Time, dow *int) bool {
	if dow == nil {
		return true
	}
	return int(t.Weekday()) == *dow
}
