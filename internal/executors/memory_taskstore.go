package executors

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryTaskStoreExecutor is an in-process reference TaskStoreExecutor.
type MemoryTaskStoreExecutor struct {
	mu    sync.Mutex
	tasks map[string]Task
}

func NewMemoryTaskStoreExecutor() *MemoryTaskStoreExecutor {
	return &MemoryTaskStoreExecutor{tasks: make(map[string]Task)}
}

var _ TaskStoreExecutor = (*MemoryTaskStoreExecutor)(nil)

func (e *MemoryTaskStoreExecutor) List(filter Filter) ([]Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Task, 0, len(e.tasks))
	for _, task := range e.tasks {
		if !matchesTaskFilter(task, filter) {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func matchesTaskFilter(task Task, filter Filter) bool {
	if !filter.TimeMin.IsZero() && task.DueDate.Before(filter.TimeMin) {
		return false
	}
	if !filter.TimeMax.IsZero() && task.DueDate.After(filter.TimeMax) {
		return false
	}
	switch filter.Status {
	case "done":
		if !task.Done {
			return false
		}
	case "pending":
		if task.Done {
			return false
		}
	}
	return true
}

func (e *MemoryTaskStoreExecutor) Create(task Task) (Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	e.tasks[task.ID] = task
	return task, nil
}

func (e *MemoryTaskStoreExecutor) Update(id string, task Task) (Task, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tasks[id]; !ok {
		return Task{}, fmt.Errorf("executors: task %q not found", id)
	}
	task.ID = id
	e.tasks[id] = task
	return task, nil
}

func (e *MemoryTaskStoreExecutor) Delete(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.tasks[id]; !ok {
		return fmt.Errorf("executors: task %q not found", id)
	}
	delete(e.tasks, id)
	return nil
}
