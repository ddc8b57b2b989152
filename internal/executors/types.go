// Package executors defines the domain-executor interfaces the
// pipeline dispatches resolved operations to (calendar, task store,
// email, memory notes) plus in-memory reference implementations.
// Executing the real external side effects (a calendar API insert, an
// email send) is out of scope for this repo's correctness guarantees;
// these in-memory executors exist so the pipeline is exercisable
// end-to-end and so EntityResolvers/Resolvers have something real to
// call in tests. Grounded on the teacher's in-memory store pattern
// (internal/llm.MemoryDialogStore, internal/auth.MemoryStore): a
// mutex-guarded slice/map per domain with lazy, copy-out reads.
package executors

import "time"

// CalendarEvent is a single calendar entry, possibly part of a
// recurring series.
type CalendarEvent struct {
	ID                string
	Summary           string
	Description       string
	Start             time.Time
	End               time.Time
	RecurringSeriesID string
}

// Task is a reminder/to-do entry.
type Task struct {
	ID       string
	Text     string
	DueDate  time.Time
	Reminder string
	Done     bool
}

// EmailDraft is an outbound email, not yet sent.
type EmailDraft struct {
	ID      string
	To      []string
	Subject string
	Body    string
}

// MemoryNote is a freeform note stored for later recall.
type MemoryNote struct {
	ID        string
	Text      string
	CreatedAt time.Time
	Tags      []string
}

// Result is the uniform outcome of a mutate call.
type Result struct {
	Success bool
	Data    any
	Error   string
}

// Filter describes the shapes EntityResolvers need to query a domain
// executor's list API: a time window, optional day-of-week/time-of-day
// narrowing, substring exclusion by summary, exact-match inclusion by
// summary, and inclusion by label.
type Filter struct {
	TimeMin          time.Time
	TimeMax          time.Time
	DayOfWeek        *int // Sun=0…Sat=6
	StartTimeHHMM    string
	EndTimeHHMM      string
	Summary          string
	ExcludeSummaries []string
	Status           string // for tasks: "", "done", "pending"
	Tags             []string
}

// CalendarExecutor is the capability boundary for calendar operations.
type CalendarExecutor interface {
	List(filter Filter) ([]CalendarEvent, error)
	Create(event CalendarEvent) (CalendarEvent, error)
	Update(id string, event CalendarEvent) (CalendarEvent, error)
	Delete(id string) error
	// DeleteSeries removes every event sharing seriesID, used when a
	// delete/update operation targets a whole recurring series rather
	// than one occurrence.
	DeleteSeries(seriesID string) (int, error)
}

// TaskStoreExecutor is the capability boundary for reminder/task
// operations.
type TaskStoreExecutor interface {
	List(filter Filter) ([]Task, error)
	Create(task Task) (Task, error)
	Update(id string, task Task) (Task, error)
	Delete(id string) error
}

// EmailExecutor is the capability boundary for email operations.
type EmailExecutor interface {
	List(filter Filter) ([]EmailDraft, error)
	Create(draft EmailDraft) (EmailDraft, error)
	Send(id string) error
}

// MemoryExecutor is the capability boundary for memory-note
// operations.
type MemoryExecutor interface {
	List(filter Filter) ([]MemoryNote, error)
	Create(note MemoryNote) (MemoryNote, error)
	Delete(id string) error
}
