// Package timectx produces the canonical "now" stamp used in every LLM
// prompt so the Planner and Resolvers reason about dates and times the
// same way the user's own clock does.
package timectx

import (
	"fmt"
	"time"
)

// TimeContext is the canonical "now" snapshot handed to every LLM-driven
// stage of a turn.
type TimeContext struct {
	Now       time.Time
	Location  *time.Location
	Weekday   string
	ISODate   string
	ClockHHMM string
	TZOffset  string
}

// New builds a TimeContext for loc anchored at now.
func New(now time.Time, loc *time.Location) TimeContext {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	_, offsetSeconds := local.Zone()
	return TimeContext{
		Now:       local,
		Location:  loc,
		Weekday:   local.Weekday().String(),
		ISODate:   local.Format("2006-01-02"),
		ClockHHMM: local.Format("15:04"),
		TZOffset:  formatOffset(offsetSeconds),
	}
}

// NewForTimezone resolves loc by IANA name, falling back to UTC on error.
func NewForTimezone(now time.Time, tz string) TimeContext {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	return New(now, loc)
}

// Prompt renders the fragment injected into LLM system/user prompts.
func (t TimeContext) Prompt() string {
	return fmt.Sprintf("Current date/time: %s (%s), UTC offset %s", t.Now.Format(time.RFC3339), t.Weekday, t.TZOffset)
}

// StartOfDay returns midnight of t.Now in t.Location.
func (t TimeContext) StartOfDay() time.Time {
	y, m, d := t.Now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location)
}

// Today returns the [start, end) window covering t.Now's calendar day.
func (t TimeContext) Today() (time.Time, time.Time) {
	start := t.StartOfDay()
	return start, start.AddDate(0, 0, 1)
}

// Tomorrow returns the [start, end) window covering the day after t.Now.
func (t TimeContext) Tomorrow() (time.Time, time.Time) {
	start := t.StartOfDay().AddDate(0, 0, 1)
	return start, start.AddDate(0, 0, 1)
}

// Week returns the [start, end) window covering the next 7 days from
// the start of t.Now's day, used as the calendar default wide window.
func (t TimeContext) Week() (time.Time, time.Time) {
	start := t.StartOfDay()
	return start, start.AddDate(0, 0, 7)
}

func formatOffset(seconds int) string {
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}
