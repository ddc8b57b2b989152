package executors

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryEmailExecutor is an in-process reference EmailExecutor. Send
// marks the draft sent rather than performing any real delivery —
// actually dispatching email is explicitly out of scope.
type MemoryEmailExecutor struct {
	mu      sync.Mutex
	drafts  map[string]EmailDraft
	sentIDs map[string]bool
}

func NewMemoryEmailExecutor() *MemoryEmailExecutor {
	return &MemoryEmailExecutor{
		drafts:  make(map[string]EmailDraft),
		sentIDs: make(map[string]bool),
	}
}

var _ EmailExecutor = (*MemoryEmailExecutor)(nil)

func (e *MemoryEmailExecutor) List(filter Filter) ([]EmailDraft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]EmailDraft, 0, len(e.drafts))
	for _, draft := range e.drafts {
		if filter.Summary != "" && draft.Subject != filter.Summary {
			continue
		}
		out = append(out, draft)
	}
	return out, nil
}

func (e *MemoryEmailExecutor) Create(draft EmailDraft) (EmailDraft, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if draft.ID == "" {
		draft.ID = uuid.NewString()
	}
	e.drafts[draft.ID] = draft
	return draft, nil
}

func (e *MemoryEmailExecutor) Send(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.drafts[id]; !ok {
		return fmt.Errorf("executors: email draft %q not found", id)
	}
	e.sentIDs[id] = true
	return nil
}

// IsSent reports whether a draft has been marked sent; used by tests.
func (e *MemoryEmailExecutor) IsSent(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sentIDs[id]
}
