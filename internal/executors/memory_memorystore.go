package executors

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryMemoryExecutor is an in-process reference MemoryExecutor for
// freeform notes, named distinctly from the conversational-memory
// package (internal/convo) which it has no relation to.
type MemoryMemoryExecutor struct {
	mu    sync.Mutex
	notes map[string]MemoryNote
}

func NewMemoryMemoryExecutor() *MemoryMemoryExecutor {
	return &MemoryMemoryExecutor{notes: make(map[string]MemoryNote)}
}

var _ MemoryExecutor = (*MemoryMemoryExecutor)(nil)

func (e *MemoryMemoryExecutor) List(filter Filter) ([]MemoryNote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]MemoryNote, 0, len(e.notes))
	for _, note := range e.notes {
		if !matchesTags(note.Tags, filter.Tags) {
			continue
		}
		if !filter.TimeMin.IsZero() && note.CreatedAt.Before(filter.TimeMin) {
			continue
		}
		if !filter.TimeMax.IsZero() && note.CreatedAt.After(filter.TimeMax) {
			continue
		}
		out = append(out, note)
	}
	return out, nil
}

func matchesTags(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]bool, len(have))
	for _, t := range have {
		set[t] = true
	}
	for _, t := range want {
		if !set[t] {
			return false
		}
	}
	return true
}

func (e *MemoryMemoryExecutor) Create(note MemoryNote) (MemoryNote, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	e.notes[note.ID] = note
	return note, nil
}

func (e *MemoryMemoryExecutor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.notes[id]; !ok {
		return fmt.Errorf("executors: memory note %q not found", id)
	}
	delete(e.notes, id)
	return nil
}
