package executors

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryCalendarExecutor is an in-process reference CalendarExecutor:
// a mutex-guarded map, copy-out on every read, grounded on the
// teacher's MemoryDialogStore/MemoryStore shape.
type MemoryCalendarExecutor struct {
	mu     sync.Mutex
	events map[string]CalendarEvent
}

// NewMemoryCalendarExecutor builds an empty in-memory calendar.
func NewMemoryCalendarExecutor() *MemoryCalendarExecutor {
	return &MemoryCalendarExecutor{events: make(map[string]CalendarEvent)}
}

var _ CalendarExecutor = (*MemoryCalendarExecutor)(nil)

func (e *MemoryCalendarExecutor) List(filter Filter) ([]CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]CalendarEvent, 0, len(e.events))
	for _, ev := range e.events {
		if !matchesCalendarFilter(ev, filter) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func matchesCalendarFilter(ev CalendarEvent, filter Filter) bool {
	if !filter.TimeMin.IsZero() && ev.Start.Before(filter.TimeMin) {
		return false
	}
	if !filter.TimeMax.IsZero() && ev.Start.After(filter.TimeMax) {
		return false
	}
	if filter.DayOfWeek != nil && int(ev.Start.Weekday()) != *filter.DayOfWeek {
		return false
	}
	if filter.StartTimeHHMM != "" && ev.Start.Format("15:04") < filter.StartTimeHHMM {
		return false
	}
	if filter.EndTimeHHMM != "" && ev.Start.Format("15:04") > filter.EndTimeHHMM {
		return false
	}
	for _, exclude := range filter.ExcludeSummaries {
		if exclude != "" && strings.Contains(strings.ToLower(ev.Summary), strings.ToLower(exclude)) {
			return false
		}
	}
	return true
}

func (e *MemoryCalendarExecutor) Create(event CalendarEvent) (CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	e.events[event.ID] = event
	return event, nil
}

func (e *MemoryCalendarExecutor) Update(id string, event CalendarEvent) (CalendarEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	existing, ok := e.events[id]
	if !ok {
		return CalendarEvent{}, fmt.Errorf("executors: calendar event %q not found", id)
	}
	event.ID = existing.ID
	if event.RecurringSeriesID == "" {
		event.RecurringSeriesID = existing.RecurringSeriesID
	}
	e.events[id] = event
	return event, nil
}

func (e *MemoryCalendarExecutor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.events[id]; !ok {
		return fmt.Errorf("executors: calendar event %q not found", id)
	}
	delete(e.events, id)
	return nil
}

// DeleteSeries removes every event sharing the given recurring series
// id, used when a delete/update operation targets a whole series.
func (e *MemoryCalendarExecutor) DeleteSeries(seriesID string) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	deleted := 0
	for id, ev := range e.events {
		if ev.RecurringSeriesID == seriesID {
			delete(e.events, id)
			deleted++
		}
	}
	return deleted, nil
}
